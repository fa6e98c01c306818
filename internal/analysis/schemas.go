package analysis

import "docanalyser/internal/domain"

// FieldType is the JSON type of an extracted field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldArray  FieldType = "array"
	FieldObject FieldType = "object"
)

// Field describes one extractable value. It is interpreted at runtime into a
// JSON-schema fragment and into the field list of the extraction prompt.
type Field struct {
	Name        string
	Type        FieldType
	Nullable    bool
	Description string
	// Items describes array elements.
	Items *Field
	// Properties describes object members, in order.
	Properties []Field
}

// JSONSchema renders the field as a JSON-schema fragment.
func (f Field) JSONSchema() map[string]any {
	s := map[string]any{}
	if f.Nullable {
		s["type"] = []any{string(f.Type), "null"}
	} else {
		s["type"] = string(f.Type)
	}
	if f.Description != "" {
		s["description"] = f.Description
	}
	switch f.Type {
	case FieldArray:
		if f.Items != nil {
			s["items"] = f.Items.JSONSchema()
		}
	case FieldObject:
		props, required := objectProperties(f.Properties)
		s["properties"] = props
		s["required"] = required
		s["additionalProperties"] = false
	}
	return s
}

func objectProperties(fields []Field) (map[string]any, []any) {
	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, p := range fields {
		props[p.Name] = p.JSONSchema()
		required = append(required, p.Name)
	}
	return props, required
}

func str(name, desc string) Field {
	return Field{Name: name, Type: FieldString, Nullable: true, Description: desc}
}

func object(name string, props ...Field) Field {
	return Field{Name: name, Type: FieldObject, Properties: props}
}

func list(name, desc string, item Field) Field {
	return Field{Name: name, Type: FieldArray, Nullable: true, Description: desc, Items: &item}
}

var categoryFields = map[domain.DocCategory][]Field{
	domain.CategoryInvoice: {
		str("invoice_number", "invoice, bill or receipt identifier"),
		str("date", "issue date as printed on the document"),
		str("total", "grand total including currency symbol or code"),
		str("vendor", "name of the issuing business"),
		str("address", "vendor address"),
		list("line_items", "one entry per billed item", object("line_item",
			str("description", "item or service description"),
			Field{Name: "quantity", Type: FieldNumber, Nullable: true, Description: "number of units"},
			str("unit_price", "price per unit"),
			str("total_price", "line total"),
		)),
	},
	domain.CategoryMarketplaceListingScreenshot: {
		str("title", "listing headline"),
		str("price", "asking price including currency"),
		str("location", "item or seller location"),
		list("characteristics", "attribute name/value pairs shown on the listing", object("characteristic",
			str("name", "attribute name"),
			str("value", "attribute value"),
		)),
		str("description", "listing body text"),
		str("seller", "seller name or handle"),
	},
	domain.CategoryChatScreenshot: {
		list("participants", "names or handles of everyone in the conversation",
			Field{Name: "participant", Type: FieldString}),
		str("timestamp", "date or time shown for the conversation"),
		list("messages", "messages in display order", object("message",
			str("sender", "who sent the message"),
			str("text", "message text"),
			str("time", "time shown next to the message"),
		)),
	},
	domain.CategoryWebsiteScreenshot: {
		str("url", "page URL if visible"),
		str("title", "page or site title"),
		str("site_type", "kind of site, such as news, shop, blog or social"),
	},
}

// fallbackFields apply to other and any category without a table entry.
var fallbackFields = []Field{
	{Name: "text", Type: FieldString, Description: "the main textual content of the document"},
}

// FieldsFor returns the field descriptors extracted for category.
func FieldsFor(category domain.DocCategory) []Field {
	if fields, ok := categoryFields[category]; ok {
		return fields
	}
	return fallbackFields
}

// FieldNames returns the ordered top-level field names for category.
func FieldNames(category domain.DocCategory) []string {
	fields := FieldsFor(category)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// ExtractionSchemaFor builds the response schema for the extract stage.
// Every schema requires both fields and raw_text.
func ExtractionSchemaFor(category domain.DocCategory) map[string]any {
	props, required := objectProperties(FieldsFor(category))
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":                 "object",
				"properties":           props,
				"required":             required,
				"additionalProperties": false,
			},
			"raw_text": map[string]any{
				"type":        "string",
				"description": "Full extracted text (OCR) from the file or image",
			},
		},
		"required":             []any{"fields", "raw_text"},
		"additionalProperties": false,
	}
}

// ClassificationSchema builds the response schema for the classify stage.
func ClassificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]any{
				"type": "string",
				"enum": domain.CategoryValues(),
			},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
		},
		"required":             []any{"category", "confidence"},
		"additionalProperties": false,
	}
}
