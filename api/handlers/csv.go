package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
)

// exportPageSize matches the store-level page cap.
const exportPageSize = 200

const importMaxBytes = 5 << 20

// collectAllPages drains a paged list call so exports cover the whole
// catalog, not just the first page.
func collectAllPages[T any](list func(page int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		items, err := list(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < exportPageSize {
			return all, nil
		}
	}
}

// csvReaderFromRequest accepts either a multipart upload under the "file"
// field or a raw text/csv body.
func csvReaderFromRequest(r *http.Request) (*csv.Reader, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(importMaxBytes); err != nil {
			return nil, errors.New("invalid multipart body")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("file field is required")
		}
		return newLenientCSVReader(file), nil
	}
	return newLenientCSVReader(http.MaxBytesReader(nil, r.Body, importMaxBytes)), nil
}

func newLenientCSVReader(src io.Reader) *csv.Reader {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func csvColumnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func csvField(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

type importRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type importReport struct {
	Imported int              `json:"imported"`
	Errors   []importRowError `json:"errors"`
}

func newImportReport() *importReport {
	return &importReport{Errors: []importRowError{}}
}

func (rep *importReport) fail(line int, message string) {
	rep.Errors = append(rep.Errors, importRowError{Line: line, Message: message})
}
