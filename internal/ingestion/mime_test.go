package ingestion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docanalyser/internal/ingestion"
)

func TestIsSupported(t *testing.T) {
	supported := []string{
		"a.png", "a.jpg", "a.jpeg", "a.webp", "a.bmp", "a.tif", "a.tiff", "a.pdf",
		"dir/UPPER.PNG", "scan.JPeG", "/abs/path/report.PDF",
	}
	for _, p := range supported {
		assert.True(t, ingestion.IsSupported(p), p)
	}

	unsupported := []string{"notes.txt", "letter.docx", "sheet.xlsx", "noext", "archive.zip", "image.gif", "png"}
	for _, p := range unsupported {
		assert.False(t, ingestion.IsSupported(p), p)
	}
}

func TestGuessMIME_KnownTypes(t *testing.T) {
	tests := map[string]string{
		"photo.png":  "image/png",
		"photo.jpg":  "image/jpeg",
		"photo.JPEG": "image/jpeg",
		"photo.webp": "image/webp",
		"doc.pdf":    "application/pdf",
		"doc.PDF":    "application/pdf",
	}
	for path, want := range tests {
		assert.Equal(t, want, ingestion.GuessMIME(path), path)
	}
}

func TestGuessMIME_ImageFallbacks(t *testing.T) {
	for _, p := range []string{"scan.tif", "scan.tiff", "scan.bmp"} {
		got := ingestion.GuessMIME(p)
		assert.Regexp(t, `^image/`, got, p)
	}
}

func TestGuessMIME_UnknownDefaultsToOctetStream(t *testing.T) {
	assert.Equal(t, "application/octet-stream", ingestion.GuessMIME("blob.zzqq"))
	assert.Equal(t, "application/octet-stream", ingestion.GuessMIME("Makefile"))
}

func TestGuessMIME_StripsParameters(t *testing.T) {
	assert.Equal(t, "text/plain", ingestion.GuessMIME("notes.txt"))
}

func TestGuessMIME_Deterministic(t *testing.T) {
	paths := []string{"a.png", "b.pdf", "c.tiff", "d.unknown", "e.txt"}
	for _, p := range paths {
		first := ingestion.GuessMIME(p)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ingestion.GuessMIME(p))
		}
	}
}
