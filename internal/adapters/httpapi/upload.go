package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

var (
	errMissingFile   = errors.New("missing file")
	errEmptyFile     = errors.New("file is empty")
	errFileTooLarge  = errors.New("file too large")
	errFileType      = errors.New("unsupported file type, upload a PDF, an image (JPG, PNG, WEBP) or a text statement")
	allowedFileTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
		"image/webp":      true,
		"text/plain":      true,
		"text/csv":        true,
	}
)

// readUpload reads the "file" form field of an already parsed multipart form
// and checks its type by content, not by the client's declaration.
func readUpload(r *http.Request, maxBytes int64) (domain.Document, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Document{}, errMissingFile
	}
	defer file.Close()

	if header.Size > maxBytes {
		return domain.Document{}, errFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return domain.Document{}, errFileTooLarge
	}
	if len(data) == 0 {
		return domain.Document{}, errEmptyFile
	}

	detected := sniff(data)
	if !allowedFileTypes[detected] {
		return domain.Document{}, errFileType
	}

	declared := strings.ToLower(header.Header.Get("Content-Type"))
	// text sniffing cannot tell CSV from plain text
	if detected == "text/plain" && strings.HasPrefix(declared, "text/csv") {
		detected = "text/csv"
	}

	return domain.Document{
		Name:        filepath.Base(header.Filename),
		ContentType: detected,
		Data:        data,
	}, nil
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	// a text statement can contain a NUL-free binary-looking header
	if ct == "application/octet-stream" && !bytes.ContainsRune(data, 0) && isMostlyText(data) {
		return "text/plain"
	}
	return ct
}

func isMostlyText(data []byte) bool {
	if len(data) > 1024 {
		data = data[:1024]
	}
	printable := 0
	for _, b := range data {
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f) || b >= 0x80 {
			printable++
		}
	}
	return printable*10 >= len(data)*9
}
