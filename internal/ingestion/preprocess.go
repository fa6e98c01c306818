package ingestion

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"docanalyser/internal/domain"
)

const (
	// DefaultMaxSide bounds the longest side of images sent to the model.
	DefaultMaxSide = 1600
	// DefaultJPEGQuality is the re-encoding quality for normalized images.
	DefaultJPEGQuality = 85
)

// ComputeHash returns the hex SHA-256 digest of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadImageMeta reads format, dimensions and color mode from the image header.
func LoadImageMeta(path string) (*domain.ImageMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	return imageMetaFrom(f, path)
}

func imageMetaFrom(r io.Reader, path string) (*domain.ImageMeta, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "decode image header", Err: err}
	}
	return &domain.ImageMeta{
		Format: strings.ToUpper(format),
		Width:  cfg.Width,
		Height: cfg.Height,
		Mode:   colorMode(cfg.ColorModel),
	}, nil
}

func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "LA"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.NYCbCrAModel:
		return "RGBA"
	default:
		return "unknown"
	}
}

// LoadPDFMeta counts the pages of a PDF. Any failure yields a record with a
// nil PageCount; it never returns an error.
func LoadPDFMeta(path string) *domain.PDFMeta {
	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.PDFMeta{}
	}
	return pdfMetaFromBytes(data)
}

func pdfMetaFromBytes(data []byte) (meta *domain.PDFMeta) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			meta = &domain.PDFMeta{}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &domain.PDFMeta{}
	}
	n := r.NumPage()
	return &domain.PDFMeta{PageCount: &n}
}

// NormalizeImage decodes the image at path, flattens it to opaque RGB,
// downsamples it so the longest side is at most maxSide and re-encodes it as
// JPEG at the given quality.
func NormalizeImage(path string, maxSide, quality int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "read", Err: err}
	}
	return normalizeImageBytes(data, path, maxSide, quality)
}

func normalizeImageBytes(data []byte, path string, maxSide, quality int) ([]byte, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "decode image", Err: err}
	}

	sb := src.Bounds()
	w, h := targetSize(sb.Dx(), sb.Dy(), maxSide)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "encode jpeg", Err: err}
	}
	return buf.Bytes(), nil
}

// targetSize scales (w, h) so the longest side equals maxSide. Images that
// already fit are returned unchanged.
func targetSize(w, h, maxSide int) (int, int) {
	longest := max(w, h)
	if longest <= maxSide {
		return w, h
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}
