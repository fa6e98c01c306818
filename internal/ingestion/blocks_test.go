package ingestion_test

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docanalyser/internal/domain"
	"docanalyser/internal/ingestion"
)

func TestTextBlock(t *testing.T) {
	b := ingestion.TextBlock("classify this")
	assert.Equal(t, domain.BlockTypeText, b.Type)
	assert.Equal(t, "classify this", b.Text)
	assert.Nil(t, b.ImageURL)
	assert.Nil(t, b.File)
}

func TestImageBlock_AlwaysJPEGDataURI(t *testing.T) {
	path := writePNG(t, t.TempDir(), "shot.png", 64, 32)

	b, err := ingestion.ImageBlock(path, 1600)

	require.NoError(t, err)
	assert.Equal(t, domain.BlockTypeImage, b.Type)
	assert.Nil(t, b.File)
	require.NotNil(t, b.ImageURL)

	mimeType, data := decodeDataURI(t, b.ImageURL.URL)
	assert.Equal(t, "image/jpeg", mimeType)
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestFileBlock_RawBytes(t *testing.T) {
	pdfBytes := buildPDF(1)
	path := writeFile(t, t.TempDir(), "invoice.pdf", pdfBytes)

	b, err := ingestion.FileBlock(path)

	require.NoError(t, err)
	assert.Equal(t, domain.BlockTypeFile, b.Type)
	assert.Nil(t, b.ImageURL)
	require.NotNil(t, b.File)
	assert.Equal(t, "invoice.pdf", b.File.Filename)

	mimeType, data := decodeDataURI(t, b.File.FileData)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, pdfBytes, data)
}

func TestFileBlock_MissingFile(t *testing.T) {
	_, err := ingestion.FileBlock(filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, domain.ErrIngestionIO)
}

func TestBlocksFor_Dispatch(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", 8, 8)
	doc := writeFile(t, dir, "b.pdf", buildPDF(2))

	blocks, err := ingestion.BlocksFor(img, "image/png")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypeImage, blocks[0].Type)

	blocks, err = ingestion.BlocksFor(doc, "application/pdf")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypeFile, blocks[0].Type)
}

func TestBlocksFor_UnsupportedMimeType(t *testing.T) {
	blocks, err := ingestion.BlocksFor("/data/notes.txt", "text/plain")

	assert.Nil(t, blocks)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedMimeType)

	var mimeErr *domain.UnsupportedMimeTypeError
	require.True(t, errors.As(err, &mimeErr))
	assert.Equal(t, "text/plain", mimeErr.MIME)
	assert.Equal(t, "/data/notes.txt", mimeErr.Path)
}
