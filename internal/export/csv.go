package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docanalyser/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns defines the header row shared by the CSV and XLSX exports.
var Columns = []string{
	"File Name",
	"Path",
	"MIME Type",
	"Size Bytes",
	"SHA256",
	"Status",
	"Category",
	"Confidence",
	"Fields",
	"Raw Text",
	"Error",
}

// CSVWriter wraps csv.Writer for exporting batch outcomes as CSV.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes CSV to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(Columns)
}

// WriteOutcomes converts outcomes to rows and writes them.
func (w *CSVWriter) WriteOutcomes(outcomes []domain.DocumentOutcome) error {
	for i := range outcomes {
		if err := w.csv.Write(OutcomeRow(&outcomes[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes BOM, header and all outcomes to out.
func WriteCSV(out io.Writer, outcomes []domain.DocumentOutcome) error {
	if _, err := out.Write(BOM); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}
	w := NewCSVWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteOutcomes(outcomes); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	w.Flush()
	return w.Error()
}

// OutcomeRow converts one outcome into a row matching Columns. Analysis
// columns stay empty for failed documents.
func OutcomeRow(o *domain.DocumentOutcome) []string {
	row := make([]string, len(Columns))

	row[0] = o.FileName()
	row[1] = o.Path
	row[5] = string(o.Status())
	if o.Err != nil {
		row[10] = o.Err.Error()
	}
	if o.Document != nil {
		row[2] = o.Document.MIMEType
		row[3] = strconv.FormatInt(o.Document.SizeBytes, 10)
		row[4] = o.Document.SHA256
	}
	if o.Result == nil {
		return row
	}

	row[6] = string(o.Result.Category)
	row[7] = strconv.FormatFloat(o.Result.Confidence, 'f', 2, 64)
	row[8] = formatFields(o.Result.Fields)
	if o.Result.RawText != nil {
		row[9] = *o.Result.RawText
	}
	return row
}

func formatFields(fields map[string]any) string {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(data)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized download name: {name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "analysis"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, time.Now().Format("2006-01-02"), ext)
}
