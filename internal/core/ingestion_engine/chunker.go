package ingestion_engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/markdave123-py/ParseBench/internal/core"
)

var (
	pageMarkerRe    = regexp.MustCompile(`## Page (\d+)`)
	sectionHeaderRe = regexp.MustCompile(`###\s+[^\n]+\n`)
	headerPrefixRe  = regexp.MustCompile(`^###\s+`)
)

// SemanticChunk splits markdown-shaped text into page- and section-tagged
// chunk drafts. Pages are delimited by "## Page N" markers, sections
// within a page by "### Title" headers; any section longer than maxWords
// is cut into fixed-size word windows. Serials are assigned by a single
// counter in emission order. The function is pure and deterministic.
//
// When the input carries no page markers at all, the whole text is
// treated as page 1 with fallbackTitle as its section title.
func SemanticChunk(markdown, fallbackTitle string, maxWords int) []core.ChunkDraft {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	var chunks []core.ChunkDraft

	markers := pageMarkerRe.FindAllStringSubmatchIndex(markdown, -1)
	for idx, m := range markers {
		pageNumber, err := strconv.Atoi(markdown[m[2]:m[3]])
		if err != nil {
			continue
		}

		start := m[1]
		end := len(markdown)
		if idx+1 < len(markers) {
			end = markers[idx+1][0]
		}
		pageContent := markdown[start:end]
		if strings.TrimSpace(pageContent) == "" {
			continue
		}

		chunks = chunkPage(chunks, pageContent, pageNumber, maxWords)
	}

	if len(chunks) == 0 {
		chunks = splitLargeChunk(markdown, 1, 0, fallbackTitle, maxWords)
	}

	return chunks
}

// chunkPage accumulates sections within one page's text. Text before the
// first header belongs to an untitled section; each header line starts a
// new section and is retained as part of its content.
func chunkPage(chunks []core.ChunkDraft, pageContent string, pageNumber, maxWords int) []core.ChunkDraft {
	var (
		currentSection string
		currentTitle   string
	)

	for _, part := range splitKeepingDelimiters(pageContent, sectionHeaderRe) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.HasPrefix(part, "###") {
			if currentSection != "" {
				chunks = append(chunks, splitLargeChunk(currentSection, pageNumber, len(chunks), currentTitle, maxWords)...)
			}
			currentTitle = strings.TrimSpace(headerPrefixRe.ReplaceAllString(part, ""))
			currentSection = part + "\n"
		} else {
			currentSection += part + "\n"
		}
	}

	if currentSection != "" {
		chunks = append(chunks, splitLargeChunk(currentSection, pageNumber, len(chunks), currentTitle, maxWords)...)
	}
	return chunks
}

// splitLargeChunk emits content as a single draft when it fits within
// maxWords, or as consecutive fixed-size word windows otherwise. All
// windows inherit the same page number and section title.
func splitLargeChunk(content string, pageNumber, startSerial int, sectionTitle string, maxWords int) []core.ChunkDraft {
	words := strings.Fields(content)

	if len(words) <= maxWords {
		return []core.ChunkDraft{{
			Content:      strings.TrimSpace(content),
			PageNumber:   pageNumber,
			ChunkSerial:  startSerial,
			SectionTitle: sectionTitle,
		}}
	}

	var out []core.ChunkDraft
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, core.ChunkDraft{
			Content:      strings.Join(words[i:end], " "),
			PageNumber:   pageNumber,
			ChunkSerial:  startSerial + len(out),
			SectionTitle: sectionTitle,
		})
	}
	return out
}

// splitKeepingDelimiters splits s around matches of re, keeping the
// matched delimiters as their own elements in document order.
func splitKeepingDelimiters(s string, re *regexp.Regexp) []string {
	var parts []string
	last := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		parts = append(parts, s[last:m[0]], s[m[0]:m[1]])
		last = m[1]
	}
	parts = append(parts, s[last:])
	return parts
}
