// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path dates, month selectors, record bodies and import uploads.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"cantine/internal/core"
	"cantine/internal/csvio"
	"cantine/internal/export"
)

const (
	maxRecordBody = 64 << 10
	maxImportBody = 10 << 20
)

var (
	// ErrMalformedBody is returned when a request body cannot be decoded.
	ErrMalformedBody = errors.New("malformed request body")

	// ErrEmptyImport is returned when an import carries no data.
	ErrEmptyImport = errors.New("empty import")
)

// ParsePathDate reads the {date} path value. The URL form uses dashes
// (DD-MM-YYYY); slashes are accepted too when escaped by the client.
func ParsePathDate(r *http.Request) (string, error) {
	raw := sanitizeInput(r.PathValue("date"))
	date := strings.ReplaceAll(raw, "-", "/")
	if !core.IsValidDate(date) {
		return "", fmt.Errorf("%q: %w", raw, core.ErrInvalidDate)
	}
	return date, nil
}

// ParseMonthParam extracts the month selector from query parameters. The
// month containing now is used when the parameter is missing.
func ParseMonthParam(query url.Values, now time.Time) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.MonthKeyOf(now), nil
	}
	return core.ParseMonthKey(v)
}

// DecodeRecord reads a JSON record from the request body.
func DecodeRecord(w http.ResponseWriter, r *http.Request) (core.DailyRecord, error) {
	var rec core.DailyRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	if err := dec.Decode(&rec); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	rec.Date = sanitizeInput(rec.Date)
	return rec, nil
}

// ReadImport reads an uploaded CSV or XLSX file, either as the raw body or as
// the "file" part of a multipart form, and parses it into records.
func ReadImport(w http.ResponseWriter, r *http.Request) (csvio.Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	filename := ""

	var data []byte
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImportBody); err != nil {
			return csvio.Result{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return csvio.Result{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		defer file.Close()
		filename = header.Filename
		mediaType = header.Header.Get("Content-Type")
		if data, err = io.ReadAll(file); err != nil {
			return csvio.Result{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
	} else {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			return csvio.Result{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return csvio.Result{}, ErrEmptyImport
	}

	if isWorkbook(data, mediaType, filename) {
		rows, err := export.ReadRows(data)
		if err != nil {
			return csvio.Result{}, err
		}
		return csvio.ParseRows(rows)
	}
	return csvio.Read(bytes.NewReader(data))
}

// isWorkbook recognises XLSX uploads by zip signature, media type or name.
func isWorkbook(data []byte, mediaType, filename string) bool {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return true
	}
	if strings.Contains(mediaType, "spreadsheetml") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}
