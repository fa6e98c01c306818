package analysis

import (
	"fmt"
	"strings"

	"docanalyser/internal/domain"
)

// ClassificationInstruction is prepended to every classify request.
const ClassificationInstruction = `You are a precise document classifier. Given an image or PDF, choose the single best category:
- invoice: invoices, bills, receipts or quotes. Look for an invoice number, itemised amounts, totals, tax lines and vendor details.
- marketplace_listing_screenshot: a product or property listing on a marketplace or classifieds site. Look for a title, an asking price, a location, item attributes and seller information.
- chat_screenshot: a conversation in a messaging app. Look for message bubbles, sender names or avatars and per-message timestamps.
- website_screenshot: any other web page. Look for browser chrome, an address bar, navigation menus or page headers.
- other: anything that fits none of the above.
Return ONLY valid JSON matching the provided schema, with a confidence between 0 and 1.`

// ExtractionInstruction builds the extract-stage instruction for category,
// listing exactly the fields of its schema.
func ExtractionInstruction(category domain.DocCategory) string {
	if !category.IsValid() {
		category = domain.CategoryOther
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an information extractor. Extract the requested fields for the category '%s'.\n", category)
	b.WriteString("Fields:\n")
	for _, f := range FieldsFor(category) {
		writeField(&b, f, 0)
	}
	b.WriteString("If a value is not present in the document, use null. Never guess or invent values.\n")
	b.WriteString("Also transcribe the full text of the document into raw_text.\n")
	b.WriteString("Return ONLY valid JSON matching the schema.")
	return b.String()
}

func writeField(b *strings.Builder, f Field, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s- %s", indent, f.Name)
	if f.Description != "" {
		fmt.Fprintf(b, ": %s", f.Description)
	}
	b.WriteString("\n")
	var members []Field
	switch {
	case f.Type == FieldObject:
		members = f.Properties
	case f.Type == FieldArray && f.Items != nil && f.Items.Type == FieldObject:
		members = f.Items.Properties
	}
	for _, m := range members {
		writeField(b, m, depth+1)
	}
}
