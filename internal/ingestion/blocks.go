package ingestion

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"docanalyser/internal/domain"
)

// TextBlock wraps a plain string as a text content block.
func TextBlock(text string) domain.ContentBlock {
	return domain.ContentBlock{Type: domain.BlockTypeText, Text: text}
}

// ImageBlock normalizes the image at path and embeds it as a JPEG data URI,
// whatever the source format.
func ImageBlock(path string, maxSide int) (domain.ContentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ContentBlock{}, &domain.IngestionIOError{Path: path, Op: "read", Err: err}
	}
	return imageBlockFromBytes(data, path, maxSide, DefaultJPEGQuality)
}

// FileBlock embeds the raw bytes at path as a PDF data URI.
func FileBlock(path string) (domain.ContentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ContentBlock{}, &domain.IngestionIOError{Path: path, Op: "read", Err: err}
	}
	return fileBlockFromBytes(data, path), nil
}

// BlocksFor builds the content blocks for a file of the given MIME type.
// Exactly one block is produced per supported file.
func BlocksFor(path, mimeType string) ([]domain.ContentBlock, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		b, err := ImageBlock(path, DefaultMaxSide)
		if err != nil {
			return nil, err
		}
		return []domain.ContentBlock{b}, nil
	case mimeType == domain.MIMETypePDF:
		b, err := FileBlock(path)
		if err != nil {
			return nil, err
		}
		return []domain.ContentBlock{b}, nil
	default:
		return nil, &domain.UnsupportedMimeTypeError{MIME: mimeType, Path: path}
	}
}

func blocksFromBytes(data []byte, path, mimeType string, maxSide, quality int) ([]domain.ContentBlock, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		b, err := imageBlockFromBytes(data, path, maxSide, quality)
		if err != nil {
			return nil, err
		}
		return []domain.ContentBlock{b}, nil
	case mimeType == domain.MIMETypePDF:
		return []domain.ContentBlock{fileBlockFromBytes(data, path)}, nil
	default:
		return nil, &domain.UnsupportedMimeTypeError{MIME: mimeType, Path: path}
	}
}

func imageBlockFromBytes(data []byte, path string, maxSide, quality int) (domain.ContentBlock, error) {
	jpegBytes, err := normalizeImageBytes(data, path, maxSide, quality)
	if err != nil {
		return domain.ContentBlock{}, err
	}
	return domain.ContentBlock{
		Type:     domain.BlockTypeImage,
		ImageURL: &domain.ImageURL{URL: dataURI(domain.MIMETypeJPEG, jpegBytes)},
	}, nil
}

func fileBlockFromBytes(data []byte, path string) domain.ContentBlock {
	return domain.ContentBlock{
		Type: domain.BlockTypeFile,
		File: &domain.FilePayload{
			Filename: filepath.Base(path),
			FileData: dataURI(domain.MIMETypePDF, data),
		},
	}
}

func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
