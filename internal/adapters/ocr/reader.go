package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

var (
	ErrOCRUnavailable  = errors.New("ocr endpoint not configured")
	ErrUnsupportedType = errors.New("unsupported document type")
)

// Reader turns a statement into plain text: text files pass through, PDFs are
// read locally and images go to a Typhoon OCR endpoint.
type Reader struct {
	url        string
	apiKey     string
	params     OcrParams
	httpClient *http.Client
}

// NewReader returns a Reader. An empty url disables image OCR.
func NewReader(url, apiKey string) *Reader {
	return &Reader{
		url:    url,
		apiKey: apiKey,
		params: OcrParams{
			Model:             "typhoon-ocr",
			TaskType:          "default",
			MaxTokens:         16000,
			Temperature:       0.1,
			TopP:              0.6,
			RepetitionPenalty: 1.2,
		},
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (r *Reader) ExtractText(ctx context.Context, doc domain.Document) (string, error) {
	switch kind := ContentType(doc); {
	case strings.HasPrefix(kind, "text/"):
		return string(doc.Data), nil
	case kind == "application/pdf":
		return pdfText(doc.Data)
	case strings.HasPrefix(kind, "image/"):
		return r.imageText(ctx, doc)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

// ContentType prefers the declared type and falls back to sniffing the bytes.
func ContentType(doc domain.Document) string {
	ct := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(doc.Data)
		if i := strings.Index(ct, ";"); i >= 0 {
			ct = ct[:i]
		}
	}
	return ct
}

// IsImage reports whether the document has to go through OCR or vision.
func IsImage(doc domain.Document) bool {
	return strings.HasPrefix(ContentType(doc), "image/")
}

func pdfText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := rd.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func (r *Reader) imageText(ctx context.Context, doc domain.Document) (string, error) {
	if r.url == "" {
		return "", ErrOCRUnavailable
	}
	// reject anything without a valid image header before paying for OCR;
	// only the header is read so a small upload cannot expand into a huge bitmap
	if _, _, err := image.DecodeConfig(bytes.NewReader(doc.Data)); err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	body, contentType, err := r.buildForm(doc)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error connecting to OCR API")
		return "", fmt.Errorf("ocr API connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr API error: %d - %s", resp.StatusCode, string(b))
	}

	var out OcrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	log.Ctx(ctx).Debug().
		Int("pages", out.TotalPages).
		Int("failed_pages", out.FailedPages).
		Float64("processing_time", out.ProcessingTime).
		Msg("ocr done")

	return out.Text(), nil
}

func (r *Reader) buildForm(doc domain.Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := doc.Name
	if name == "" {
		name = "statement"
	}
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(doc.Data); err != nil {
		return nil, "", err
	}

	params, err := json.Marshal(r.params)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("params", string(params)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Text joins the recognised text of every successful page.
func (o OcrResponse) Text() string {
	var pages []string
	for _, res := range o.Results {
		if !res.Success || res.Message == nil || len(res.Message.Choices) == 0 {
			continue
		}
		content := res.Message.Choices[0].Message.Content
		var pc pageContent
		if err := json.Unmarshal([]byte(content), &pc); err == nil && pc.NaturalText != "" {
			content = pc.NaturalText
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n")
}
