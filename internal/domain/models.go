package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ImageMeta holds header-level information about an image input.
type ImageMeta struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mode   string `json:"mode"`
}

// PDFMeta holds best-effort information about a PDF input. PageCount is nil
// when the document could not be parsed.
type PDFMeta struct {
	PageCount *int `json:"page_count"`
}

// IngestedFile is the record produced by ingestion for one input file. It is
// not mutated after the loader returns it.
type IngestedFile struct {
	Path      string         `json:"path"`
	MIMEType  string         `json:"mime_type"`
	SizeBytes int64          `json:"size_bytes"`
	SHA256    string         `json:"sha256"`
	Image     *ImageMeta     `json:"image,omitempty"`
	PDF       *PDFMeta       `json:"pdf,omitempty"`
	Blocks    []ContentBlock `json:"blocks"`
	Extra     map[string]any `json:"extra"`
}

// FileName returns the base name of the source path.
func (f *IngestedFile) FileName() string {
	return filepath.Base(f.Path)
}

// ImageURL is the payload of an image_url block.
type ImageURL struct {
	URL string `json:"url"`
}

// FilePayload is the payload of a file block.
type FilePayload struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// ContentBlock is one unit of a multimodal chat message. Type selects which
// of Text, ImageURL or File is meaningful; the others are ignored on the wire.
type ContentBlock struct {
	Type     BlockType
	Text     string
	ImageURL *ImageURL
	File     *FilePayload
}

type textBlockJSON struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

type imageBlockJSON struct {
	Type     BlockType `json:"type"`
	ImageURL ImageURL  `json:"image_url"`
}

type fileBlockJSON struct {
	Type BlockType   `json:"type"`
	File FilePayload `json:"file"`
}

// MarshalJSON emits only the fields of the active variant.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeText:
		return json.Marshal(textBlockJSON{Type: b.Type, Text: b.Text})
	case BlockTypeImage:
		if b.ImageURL == nil {
			return nil, fmt.Errorf("image_url block without payload")
		}
		return json.Marshal(imageBlockJSON{Type: b.Type, ImageURL: *b.ImageURL})
	case BlockTypeFile:
		if b.File == nil {
			return nil, fmt.Errorf("file block without payload")
		}
		return json.Marshal(fileBlockJSON{Type: b.Type, File: *b.File})
	default:
		return nil, fmt.Errorf("unknown content block type %q", b.Type)
	}
}

// UnmarshalJSON populates only the payload matching the decoded type tag.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     BlockType    `json:"type"`
		Text     string       `json:"text"`
		ImageURL *ImageURL    `json:"image_url"`
		File     *FilePayload `json:"file"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = ContentBlock{Type: raw.Type}
	switch raw.Type {
	case BlockTypeText:
		b.Text = raw.Text
	case BlockTypeImage:
		if raw.ImageURL == nil {
			return fmt.Errorf("image_url block without payload")
		}
		b.ImageURL = raw.ImageURL
	case BlockTypeFile:
		if raw.File == nil {
			return fmt.Errorf("file block without payload")
		}
		b.File = raw.File
	default:
		return fmt.Errorf("unknown content block type %q", raw.Type)
	}
	return nil
}

// ClassificationResult is the output of the classify stage.
type ClassificationResult struct {
	Category   DocCategory `json:"category"`
	Confidence float64     `json:"confidence"`
}

// ExtractionResult is the output of the extract stage. Fields is never nil.
type ExtractionResult struct {
	Fields  map[string]any `json:"fields"`
	RawText *string        `json:"raw_text"`
}

// AnalysisResult merges classification and extraction for one document.
type AnalysisResult struct {
	Category   DocCategory    `json:"category"`
	Confidence float64        `json:"confidence"`
	Fields     map[string]any `json:"fields"`
	RawText    *string        `json:"raw_text"`
}

// ToMap returns the persisted key/value shape of the result.
func (r *AnalysisResult) ToMap() map[string]any {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	var rawText any
	if r.RawText != nil {
		rawText = *r.RawText
	}
	return map[string]any{
		"category":   string(r.Category),
		"confidence": r.Confidence,
		"fields":     fields,
		"raw_text":   rawText,
	}
}

// ResultRecord is an analysed document as written to a result sink.
type ResultRecord struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	SourcePath string          `db:"source_path" json:"source_path"`
	FileName   string          `db:"file_name" json:"file_name"`
	MIMEType   string          `db:"mime_type" json:"mime_type"`
	SizeBytes  int64           `db:"size_bytes" json:"size_bytes"`
	SHA256     string          `db:"sha256" json:"sha256"`
	Category   DocCategory     `db:"category" json:"category"`
	Confidence float64         `db:"confidence" json:"confidence"`
	Fields     json.RawMessage `db:"fields" json:"fields"`
	RawText    *string         `db:"raw_text" json:"raw_text"`
	Model      string          `db:"model" json:"model"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewResultRecord builds a ResultRecord for doc and its analysis.
func NewResultRecord(doc *IngestedFile, res *AnalysisResult, model string) (*ResultRecord, error) {
	fields := res.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshaling fields: %w", err)
	}
	return &ResultRecord{
		ID:         uuid.New(),
		SourcePath: doc.Path,
		FileName:   doc.FileName(),
		MIMEType:   doc.MIMEType,
		SizeBytes:  doc.SizeBytes,
		SHA256:     doc.SHA256,
		Category:   res.Category,
		Confidence: res.Confidence,
		Fields:     fieldsJSON,
		RawText:    res.RawText,
		Model:      model,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// DocumentOutcome is the per-document result of a batch run. Exactly one of
// Result and Err is set.
type DocumentOutcome struct {
	Path     string
	Document *IngestedFile
	Result   *AnalysisResult
	RecordID *uuid.UUID
	Err      error
	Duration time.Duration
}

// Status reports whether the document was analysed.
func (o *DocumentOutcome) Status() DocumentStatus {
	if o.Err != nil || o.Result == nil {
		return DocumentStatusFailed
	}
	return DocumentStatusAnalysed
}

// FileName returns the base name of the source path.
func (o *DocumentOutcome) FileName() string {
	return filepath.Base(o.Path)
}
