package analysis_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docanalyser/internal/analysis"
	"docanalyser/internal/domain"
)

func requiredOf(t *testing.T, schema map[string]any) []any {
	t.Helper()
	req, ok := schema["required"].([]any)
	require.True(t, ok, "required is %T", schema["required"])
	return req
}

func fieldsSchema(t *testing.T, schema map[string]any) map[string]any {
	t.Helper()
	props := schema["properties"].(map[string]any)
	return props["fields"].(map[string]any)
}

func TestExtractionSchemaFor_AlwaysRequiresFieldsAndRawText(t *testing.T) {
	categories := append([]domain.DocCategory{}, domain.AllCategories...)
	categories = append(categories, domain.DocCategory("not_a_category"), "")

	for _, c := range categories {
		schema := analysis.ExtractionSchemaFor(c)

		assert.ElementsMatch(t, []any{"fields", "raw_text"}, requiredOf(t, schema), c)
		assert.Equal(t, false, schema["additionalProperties"], c)
		props := schema["properties"].(map[string]any)
		assert.Equal(t, "string", props["raw_text"].(map[string]any)["type"], c)
		assert.Equal(t, "object", fieldsSchema(t, schema)["type"], c)
	}
}

func TestExtractionSchemaFor_InvoiceFields(t *testing.T) {
	fields := fieldsSchema(t, analysis.ExtractionSchemaFor(domain.CategoryInvoice))

	assert.Equal(t,
		[]any{"invoice_number", "date", "total", "vendor", "address", "line_items"},
		requiredOf(t, fields))

	lineItems := fields["properties"].(map[string]any)["line_items"].(map[string]any)
	assert.Equal(t, []any{"array", "null"}, lineItems["type"])
	item := lineItems["items"].(map[string]any)
	assert.Equal(t, "object", item["type"])
	assert.Equal(t, []any{"description", "quantity", "unit_price", "total_price"}, requiredOf(t, item))
	assert.Equal(t, false, item["additionalProperties"])
}

func TestExtractionSchemaFor_CategoryTables(t *testing.T) {
	tests := map[domain.DocCategory][]string{
		domain.CategoryMarketplaceListingScreenshot: {"title", "price", "location", "characteristics", "description", "seller"},
		domain.CategoryChatScreenshot:               {"participants", "timestamp", "messages"},
		domain.CategoryWebsiteScreenshot:            {"url", "title", "site_type"},
		domain.CategoryOther:                        {"text"},
		domain.DocCategory("mystery"):               {"text"},
	}
	for category, want := range tests {
		assert.Equal(t, want, analysis.FieldNames(category), category)

		var got []string
		for _, r := range requiredOf(t, fieldsSchema(t, analysis.ExtractionSchemaFor(category))) {
			got = append(got, r.(string))
		}
		assert.Equal(t, want, got, category)
	}
}

func TestExtractionSchemaFor_ChatParticipantsAreStrings(t *testing.T) {
	fields := fieldsSchema(t, analysis.ExtractionSchemaFor(domain.CategoryChatScreenshot))
	participants := fields["properties"].(map[string]any)["participants"].(map[string]any)

	assert.Equal(t, map[string]any{"type": "string"}, participants["items"])
}

func TestExtractionSchemaFor_Serializable(t *testing.T) {
	for _, c := range domain.AllCategories {
		_, err := json.Marshal(analysis.ExtractionSchemaFor(c))
		assert.NoError(t, err, c)
	}
}

func TestClassificationSchema(t *testing.T) {
	schema := analysis.ClassificationSchema()

	assert.ElementsMatch(t, []any{"category", "confidence"}, requiredOf(t, schema))
	assert.Equal(t, false, schema["additionalProperties"])

	props := schema["properties"].(map[string]any)
	category := props["category"].(map[string]any)
	assert.Equal(t, []string{
		"invoice", "marketplace_listing_screenshot", "chat_screenshot", "website_screenshot", "other",
	}, category["enum"])

	confidence := props["confidence"].(map[string]any)
	assert.Equal(t, "number", confidence["type"])
	assert.Equal(t, 0, confidence["minimum"])
	assert.Equal(t, 1, confidence["maximum"])
}

func TestField_JSONSchema(t *testing.T) {
	f := analysis.Field{Name: "total", Type: analysis.FieldString, Nullable: true, Description: "grand total"}
	assert.Equal(t, map[string]any{
		"type":        []any{"string", "null"},
		"description": "grand total",
	}, f.JSONSchema())

	plain := analysis.Field{Name: "text", Type: analysis.FieldNumber}
	assert.Equal(t, map[string]any{"type": "number"}, plain.JSONSchema())
}
