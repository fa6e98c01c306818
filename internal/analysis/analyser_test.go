package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docanalyser/internal/analysis"
	"docanalyser/internal/config"
	"docanalyser/internal/domain"
	"docanalyser/internal/port"
	"docanalyser/mocks"
)

func testDoc() *domain.IngestedFile {
	return &domain.IngestedFile{
		Path:     "/tmp/receipt.png",
		MIMEType: "image/png",
		Blocks: []domain.ContentBlock{
			{Type: domain.BlockTypeImage, ImageURL: &domain.ImageURL{URL: "data:image/jpeg;base64,AAAA"}},
		},
		Extra: map[string]any{},
	}
}

func isStage(name string) interface{} {
	return mock.MatchedBy(func(req port.ChatRequest) bool { return req.SchemaName == name })
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := analysis.New(&config.LLMProviderConfig{Provider: "openrouter", APIKey: "  "}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)

	a, err := analysis.New(&config.LLMProviderConfig{Provider: "openrouter", APIKey: "k", Model: "openai/gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", a.Model())
}

func TestClassify_PrependsInstructionAndUsesSchema(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	doc := testDoc()
	chat.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(req port.ChatRequest) bool {
		return len(req.Blocks) == 2 &&
			req.Blocks[0].Type == domain.BlockTypeText &&
			req.Blocks[0].Text == analysis.ClassificationInstruction &&
			req.Blocks[1].Type == domain.BlockTypeImage &&
			req.SchemaName == "classification"
	})).Return(`{"category":"chat_screenshot","confidence":0.81}`, nil)

	res, err := analysis.NewWithCompleter(chat, nil).Classify(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryChatScreenshot, res.Category)
	assert.InDelta(t, 0.81, res.Confidence, 1e-9)
	assert.Len(t, doc.Blocks, 1, "document blocks must not be mutated")
	chat.AssertExpectations(t)
}

func TestClassify_Coercion(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		category domain.DocCategory
		conf     float64
	}{
		{"invalid category", `{"category":"not_a_category","confidence":0.7}`, domain.CategoryOther, 0.7},
		{"missing category", `{"confidence":0.4}`, domain.CategoryOther, 0.4},
		{"non-string category", `{"category":5,"confidence":0.4}`, domain.CategoryOther, 0.4},
		{"missing confidence", `{"category":"invoice"}`, domain.CategoryInvoice, 0},
		{"string confidence", `{"category":"invoice","confidence":"0.65"}`, domain.CategoryInvoice, 0.65},
		{"garbage confidence", `{"category":"invoice","confidence":"high"}`, domain.CategoryInvoice, 0},
		{"confidence above range", `{"category":"invoice","confidence":7}`, domain.CategoryInvoice, 1},
		{"confidence below range", `{"category":"invoice","confidence":-0.5}`, domain.CategoryInvoice, 0},
		{"json array", `[1,2,3]`, domain.CategoryOther, 0},
		{"json null", `null`, domain.CategoryOther, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := new(mocks.MockChatCompleter)
			chat.On("CompleteJSON", mock.Anything, isStage("classification")).Return(tt.content, nil)

			res, err := analysis.NewWithCompleter(chat, nil).Classify(context.Background(), testDoc())

			require.NoError(t, err)
			assert.Equal(t, tt.category, res.Category)
			assert.InDelta(t, tt.conf, res.Confidence, 1e-9)
		})
	}
}

func TestClassify_NonJSONContent(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).Return("I think it's an invoice", nil)

	_, err := analysis.NewWithCompleter(chat, nil).Classify(context.Background(), testDoc())

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClassify_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).Return("", boom)

	_, err := analysis.NewWithCompleter(chat, nil).Classify(context.Background(), testDoc())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/tmp/receipt.png")
}

func TestExtract_ParsesFieldsAndRawText(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("extraction")).
		Return(`{"fields":{"url":"https://example.com","title":"Example","site_type":null},"raw_text":"Example Domain"}`, nil)

	res, err := analysis.NewWithCompleter(chat, nil).Extract(context.Background(), testDoc(), domain.CategoryWebsiteScreenshot)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", res.Fields["url"])
	assert.Nil(t, res.Fields["site_type"])
	require.NotNil(t, res.RawText)
	assert.Equal(t, "Example Domain", *res.RawText)
}

func TestExtract_LenientShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing everything", `{}`},
		{"fields not an object", `{"fields":"oops","raw_text":42}`},
		{"fields is a list", `{"fields":[1,2],"raw_text":null}`},
		{"fields malformed with raw text", `{"fields":"oops","raw_text":"INVOICE 42"}`},
		{"fields null with raw text", `{"fields":null,"raw_text":"INVOICE 42"}`},
		{"top-level array", `["x"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := new(mocks.MockChatCompleter)
			chat.On("CompleteJSON", mock.Anything, isStage("extraction")).Return(tt.content, nil)

			res, err := analysis.NewWithCompleter(chat, nil).Extract(context.Background(), testDoc(), domain.CategoryOther)

			require.NoError(t, err)
			assert.NotNil(t, res.Fields)
			assert.Empty(t, res.Fields)
			assert.Nil(t, res.RawText)
		})
	}
}

func TestExtract_MissingFieldsKeepsRawText(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("extraction")).Return(`{"raw_text":"INVOICE 42"}`, nil)

	res, err := analysis.NewWithCompleter(chat, nil).Extract(context.Background(), testDoc(), domain.CategoryInvoice)

	require.NoError(t, err)
	assert.Empty(t, res.Fields)
	require.NotNil(t, res.RawText)
	assert.Equal(t, "INVOICE 42", *res.RawText)
}

func TestExtract_NonJSONContent(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("extraction")).Return("{not json", nil)

	_, err := analysis.NewWithCompleter(chat, nil).Extract(context.Background(), testDoc(), domain.CategoryInvoice)

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestAnalyse_InvoiceDispatchesInvoiceSchema(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).
		Return(`{"category":"invoice","confidence":0.93}`, nil).Once()

	var extractReq port.ChatRequest
	chat.On("CompleteJSON", mock.Anything, isStage("extraction")).
		Run(func(args mock.Arguments) { extractReq = args.Get(1).(port.ChatRequest) }).
		Return(`{"fields":{"invoice_number":"INV-7","date":"2024-03-01","total":"$120.00","vendor":"Acme","address":null,"line_items":[]},"raw_text":"INVOICE INV-7"}`, nil).Once()

	res, err := analysis.NewWithCompleter(chat, nil).Analyse(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryInvoice, res.Category)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.Equal(t, "INV-7", res.Fields["invoice_number"])
	require.NotNil(t, res.RawText)
	assert.Equal(t, "INVOICE INV-7", *res.RawText)

	// the extract call used the invoice schema and instruction
	fields := extractReq.Schema["properties"].(map[string]any)["fields"].(map[string]any)
	var required []string
	for _, r := range fields["required"].([]any) {
		required = append(required, r.(string))
	}
	assert.Equal(t, analysis.FieldNames(domain.CategoryInvoice), required)
	require.NotEmpty(t, extractReq.Blocks)
	assert.Equal(t, analysis.ExtractionInstruction(domain.CategoryInvoice), extractReq.Blocks[0].Text)
	chat.AssertExpectations(t)
}

func TestAnalyse_InvalidCategoryExtractsWithFallbackSchema(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).
		Return(`{"category":"spreadsheet","confidence":0.2}`, nil).Once()
	chat.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(req port.ChatRequest) bool {
		return req.SchemaName == "extraction" &&
			req.Blocks[0].Text == analysis.ExtractionInstruction(domain.CategoryOther)
	})).Return(`{"fields":{"text":"hello"},"raw_text":"hello"}`, nil).Once()

	res, err := analysis.NewWithCompleter(chat, nil).Analyse(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryOther, res.Category)
	assert.Equal(t, map[string]any{"text": "hello"}, res.Fields)
	chat.AssertExpectations(t)
}

func TestAnalyse_ClassifyFailureSkipsExtract(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).Return("", errors.New("503"))

	res, err := analysis.NewWithCompleter(chat, nil).Analyse(context.Background(), testDoc())

	assert.Nil(t, res)
	assert.Error(t, err)
	chat.AssertNumberOfCalls(t, "CompleteJSON", 1)
}

func TestAnalyse_ExtractFailurePropagates(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("CompleteJSON", mock.Anything, isStage("classification")).Return(`{"category":"invoice","confidence":1}`, nil)
	chat.On("CompleteJSON", mock.Anything, isStage("extraction")).Return("", errors.New("timeout"))

	res, err := analysis.NewWithCompleter(chat, nil).Analyse(context.Background(), testDoc())

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
