package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/ParseBench/internal/models"
	"github.com/markdave123-py/ParseBench/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	Message    string `json:"message"`
	ParserType string `json:"parserType"`
	Model      string `json:"model"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if !models.ValidParser(req.ParserType) {
		http.Error(w, fmt.Sprintf("invalid parserType. Must be %q or %q", models.ParserDocling, models.ParserAzureDI), http.StatusBadRequest)
		return
	}
	if !h.chat.ValidModel(req.Model) {
		http.Error(w, fmt.Sprintf("invalid model. Must be %q or %q", services.ModelGemini, services.ModelOpenAI), http.StatusBadRequest)
		return
	}

	answer, err := h.chat.Ask(r.Context(), req.Message, req.ParserType, req.Model)
	if err != nil {
		slog.Error("chat query failed", "parser", req.ParserType, "model", req.Model, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}
