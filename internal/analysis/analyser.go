package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"docanalyser/internal/config"
	"docanalyser/internal/domain"
	"docanalyser/internal/ingestion"
	"docanalyser/internal/llm/openai"
	"docanalyser/internal/port"
)

const (
	classificationSchemaName = "classification"
	extractionSchemaName     = "extraction"
)

// Analyser classifies a document and then extracts the fields of its
// category with a second, category-specific completion.
type Analyser struct {
	chat   port.ChatCompleter
	logger *slog.Logger
}

// New builds an Analyser over the default OpenAI-compatible client.
func New(cfg *config.LLMProviderConfig, logger *slog.Logger) (*Analyser, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrMissingAPIKey
	}
	return NewWithCompleter(openai.NewClient(cfg), logger), nil
}

// NewWithCompleter builds an Analyser over any ChatCompleter.
func NewWithCompleter(chat port.ChatCompleter, logger *slog.Logger) *Analyser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyser{chat: chat, logger: logger.With("component", "analysis.Analyser")}
}

// Model returns the model used for completions.
func (a *Analyser) Model() string {
	return a.chat.Model()
}

// Classify assigns doc to one of the closed set of categories.
func (a *Analyser) Classify(ctx context.Context, doc *domain.IngestedFile) (*domain.ClassificationResult, error) {
	js, err := a.chatJSON(ctx, ClassificationInstruction, doc, classificationSchemaName, ClassificationSchema())
	if err != nil {
		return nil, fmt.Errorf("classifying %s: %w", doc.Path, err)
	}

	obj, _ := js.(map[string]any)
	rawCategory, _ := obj["category"].(string)
	res := &domain.ClassificationResult{
		Category:   domain.ParseDocCategory(rawCategory),
		Confidence: coerceConfidence(obj["confidence"]),
	}
	a.logger.DebugContext(ctx, "classified document",
		"path", doc.Path, "category", res.Category, "confidence", res.Confidence)
	return res, nil
}

// Extract pulls the fields for category out of doc.
func (a *Analyser) Extract(ctx context.Context, doc *domain.IngestedFile, category domain.DocCategory) (*domain.ExtractionResult, error) {
	js, err := a.chatJSON(ctx, ExtractionInstruction(category), doc, extractionSchemaName, ExtractionSchemaFor(category))
	if err != nil {
		return nil, fmt.Errorf("extracting %s from %s: %w", category, doc.Path, err)
	}

	obj, _ := js.(map[string]any)
	res := &domain.ExtractionResult{Fields: map[string]any{}}
	wellFormed := true
	if v, present := obj["fields"]; present {
		fields, ok := v.(map[string]any)
		if ok {
			res.Fields = fields
		}
		wellFormed = ok
	}
	// raw_text is dropped along with a malformed fields value
	if raw, ok := obj["raw_text"].(string); ok && wellFormed {
		res.RawText = &raw
	}
	a.logger.DebugContext(ctx, "extracted fields",
		"path", doc.Path, "category", category, "field_count", len(res.Fields))
	return res, nil
}

// Analyse runs Classify then Extract with the classified category.
func (a *Analyser) Analyse(ctx context.Context, doc *domain.IngestedFile) (*domain.AnalysisResult, error) {
	cls, err := a.Classify(ctx, doc)
	if err != nil {
		return nil, err
	}
	ext, err := a.Extract(ctx, doc, cls.Category)
	if err != nil {
		return nil, err
	}
	return &domain.AnalysisResult{
		Category:   cls.Category,
		Confidence: cls.Confidence,
		Fields:     ext.Fields,
		RawText:    ext.RawText,
	}, nil
}

// chatJSON prepends instruction to the document's blocks and decodes the
// constrained completion. Only content that is not JSON at all is an error.
func (a *Analyser) chatJSON(ctx context.Context, instruction string, doc *domain.IngestedFile, name string, schema map[string]any) (any, error) {
	blocks := make([]domain.ContentBlock, 0, len(doc.Blocks)+1)
	blocks = append(blocks, ingestion.TextBlock(instruction))
	blocks = append(blocks, doc.Blocks...)

	content, err := a.chat.CompleteJSON(ctx, port.ChatRequest{
		Blocks:     blocks,
		SchemaName: name,
		Schema:     schema,
	})
	if err != nil {
		return nil, err
	}

	var js any
	if err := json.Unmarshal([]byte(content), &js); err != nil {
		return nil, fmt.Errorf("%w: message content is not JSON: %v", domain.ErrMalformedResponse, err)
	}
	return js, nil
}

// coerceConfidence accepts numbers and numeric strings; anything else is 0.
// The result is clamped into [0, 1].
func coerceConfidence(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}
