package ocr_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmachinequote/quote-engine/internal/adapters/ocr"
	"github.com/cardmachinequote/quote-engine/internal/domain"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeaderOnly returns the signature and IHDR chunk of a PNG claiming the
// given size, with no pixel data behind it.
func pngHeaderOnly(width, height uint32) []byte {
	ihdr := make([]byte, 4+13)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], width)
	binary.BigEndian.PutUint32(ihdr[8:], height)
	ihdr[12] = 8 // bit depth
	ihdr[13] = 6 // RGBA

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.Document
		want string
	}{
		{"declared", domain.Document{ContentType: "application/pdf"}, "application/pdf"},
		{"declared with params", domain.Document{ContentType: "text/plain; charset=utf-8"}, "text/plain"},
		{"sniffed text", domain.Document{Data: []byte("Total 500 £10,000.00")}, "text/plain"},
		{"sniffed pdf", domain.Document{ContentType: "application/octet-stream", Data: []byte("%PDF-1.4\n")}, "application/pdf"},
		{"sniffed png", domain.Document{Data: pngBytes(t)}, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ocr.ContentType(tt.doc))
		})
	}
}

func TestReader_TextPassthrough(t *testing.T) {
	r := ocr.NewReader("", "")

	got, err := r.ExtractText(context.Background(), domain.Document{ContentType: "text/plain", Data: []byte("Net amount £300.00")})

	require.NoError(t, err)
	assert.Equal(t, "Net amount £300.00", got)
}

func TestReader_ImageWithoutEndpoint(t *testing.T) {
	r := ocr.NewReader("", "")

	_, err := r.ExtractText(context.Background(), domain.Document{Data: pngBytes(t)})

	assert.ErrorIs(t, err, ocr.ErrOCRUnavailable)
}

func TestReader_UnsupportedType(t *testing.T) {
	r := ocr.NewReader("", "")

	_, err := r.ExtractText(context.Background(), domain.Document{ContentType: "application/zip", Data: []byte("PK")})

	assert.ErrorIs(t, err, ocr.ErrUnsupportedType)
}

func TestReader_BrokenPDF(t *testing.T) {
	r := ocr.NewReader("", "")

	_, err := r.ExtractText(context.Background(), domain.Document{ContentType: "application/pdf", Data: []byte("%PDF-1.4 not really")})

	assert.Error(t, err)
}

func TestReader_ImageOCR(t *testing.T) {
	var gotAuth, gotParams string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		gotParams = r.FormValue("params")
		_, _, err := r.FormFile("file")
		assert.NoError(t, err)

		page := func(content string) ocr.OcrResult {
			return ocr.OcrResult{Success: true, Message: &ocr.OcrMessage{Choices: []ocr.OcrChoice{{Message: ocr.OcrChatMessage{Content: content}}}}}
		}
		_ = json.NewEncoder(w).Encode(ocr.OcrResponse{
			TotalPages:      3,
			SuccessfulPages: 2,
			FailedPages:     1,
			Results: []ocr.OcrResult{
				page(`{"natural_text":"Total 500 £10,000.00"}`),
				{Success: false, Error: "timeout"},
				page("Net amount £300.00"),
			},
		})
	}))
	defer srv.Close()

	r := ocr.NewReader(srv.URL, "secret")
	got, err := r.ExtractText(context.Background(), domain.Document{Name: "s.png", Data: pngBytes(t)})

	require.NoError(t, err)
	assert.Equal(t, "Total 500 £10,000.00\nNet amount £300.00", got)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, gotParams, `"model":"typhoon-ocr"`)
}

func TestReader_ImageOCRServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := ocr.NewReader(srv.URL, "")
	_, err := r.ExtractText(context.Background(), domain.Document{Data: pngBytes(t)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestReader_ImageCheckReadsHeaderOnly(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(ocr.OcrResponse{})
	}))
	defer srv.Close()

	r := ocr.NewReader(srv.URL, "")
	_, err := r.ExtractText(context.Background(), domain.Document{ContentType: "image/png", Data: pngHeaderOnly(8000, 8000)})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestReader_RejectsUndecodableImage(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	r := ocr.NewReader(srv.URL, "")
	_, err := r.ExtractText(context.Background(), domain.Document{ContentType: "image/png", Data: []byte("not an image")})

	assert.Error(t, err)
	assert.False(t, called)
}
