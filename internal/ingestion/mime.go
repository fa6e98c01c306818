package ingestion

import (
	"mime"
	"path/filepath"
	"strings"

	"docanalyser/internal/domain"
)

// ImageExtensions lists the image file extensions the pipeline accepts.
var ImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// PDFExtensions lists the PDF file extensions the pipeline accepts.
var PDFExtensions = map[string]bool{
	".pdf": true,
}

// fallbackMIME covers supported extensions the platform table may not know.
var fallbackMIME = map[string]string{
	".jpg":  domain.MIMETypeJPEG,
	".jpeg": domain.MIMETypeJPEG,
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  domain.MIMETypePDF,
}

// GuessMIME infers a MIME type from the file name alone.
func GuessMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return domain.MIMETypeOctetStream
	}

	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}

	if t, ok := fallbackMIME[ext]; ok {
		return t
	}
	if ImageExtensions[ext] {
		return "image/" + strings.TrimPrefix(ext, ".")
	}
	return domain.MIMETypeOctetStream
}

// IsSupported reports whether the file extension belongs to the image or PDF set.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ImageExtensions[ext] || PDFExtensions[ext]
}
