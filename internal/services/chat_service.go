package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/models"
)

// Completion model choices.
const (
	ModelGemini = "gemini"
	ModelOpenAI = "openai"
)

// NoInformationMessage is returned without any model call when retrieval
// finds nothing to ground an answer on.
const NoInformationMessage = "No relevant information found in the uploaded documents. Please upload documents first."

const systemPrompt = "You are a helpful assistant. Use the following context from documents to answer the user's question. If the answer cannot be found in the context, say so."

// ChatService composes a grounded prompt from retrieved chunks and
// delegates generation to the selected completion model. Model selection
// is pure routing; the two providers share no state.
type ChatService struct {
	retrieval *RetrievalService
	providers map[string]core.LLMProvider
	topK      int
}

type ChatAnswer struct {
	Answer          string                  `json:"answer"`
	RetrievedChunks []models.RetrievedChunk `json:"retrieved_chunks"`
	Model           string                  `json:"model"`
	ParserType      string                  `json:"parser_type"`
}

func NewChatService(retrieval *RetrievalService, gemini, openai core.LLMProvider, topK int) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		retrieval: retrieval,
		providers: map[string]core.LLMProvider{
			ModelGemini: gemini,
			ModelOpenAI: openai,
		},
		topK: topK,
	}
}

// ValidModel reports whether m names a configured completion model.
func (s *ChatService) ValidModel(m string) bool {
	_, ok := s.providers[m]
	return ok
}

func (s *ChatService) Ask(ctx context.Context, message, parser, model string) (*ChatAnswer, error) {
	provider, ok := s.providers[model]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}

	retrieved, err := s.retrieval.Retrieve(ctx, message, parser, s.topK)
	if err != nil {
		return nil, err
	}

	if len(retrieved) == 0 {
		return &ChatAnswer{
			Answer:          NoInformationMessage,
			RetrievedChunks: []models.RetrievedChunk{},
			Model:           model,
			ParserType:      parser,
		}, nil
	}

	answer, err := provider.Generate(ctx, systemPrompt, buildPrompt(message, retrieved))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &ChatAnswer{
		Answer:          answer,
		RetrievedChunks: retrieved,
		Model:           model,
		ParserType:      parser,
	}, nil
}

// buildPrompt enumerates the retrieved chunks, each annotated with its
// page number and source filename, followed by the question.
func buildPrompt(question string, chunks []models.RetrievedChunk) string {
	blocks := make([]string, len(chunks))
	for i, ch := range chunks {
		blocks[i] = fmt.Sprintf("[%d] (Page %d, %s)\n%s",
			i+1, ch.Metadata.PageNumber, ch.Metadata.FileName, ch.Content)
	}
	context := strings.Join(blocks, "\n\n---\n\n")

	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", context, question)
}
