// Package http serves the tracker sessions and the dashboard as a JSON API.
//
// This file holds the request parsing helpers shared by the handlers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lifedash/internal/core"
)

const (
	maxBodyBytes   = 64 << 10
	maxUserIDBytes = 128

	UserIDHeader = "X-User-ID"
)

// errBadRequest marks malformed input, as opposed to well formed edits the model rejects.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// MonthParams is the optional ?year=&month= selection of a GET.
type MonthParams struct {
	Year  int
	Month int
	Set   bool
}

// ParseMonthParams reads year and month from the query. Either may be omitted;
// an omitted year is taken from current.
func ParseMonthParams(query url.Values, current core.Period) (MonthParams, error) {
	params := MonthParams{Year: current.Year, Month: int(current.Month)}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("year %q is not a number", v)
		}
		params.Year = y
		params.Set = true
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("month %q is not a number", v)
		}
		params.Month = m
		params.Set = true
	}
	return params, nil
}

// Period validates the month number.
func (p MonthParams) Period() (core.Period, error) {
	return core.ParsePeriod(p.Year, p.Month)
}

// RequestBodyParser reads a JSON object or a form encoded body once.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = badRequest("read body: %v", p.err)
		return p.err
	}
	if len(strings.TrimSpace(string(p.body))) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed := strings.TrimSpace(string(p.body)); trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = badRequest("invalid JSON: %v", err)
		}
		return p.err
	}

	form, err := url.ParseQuery(string(p.body))
	if err != nil {
		p.err = badRequest("invalid form body: %v", err)
		return p.err
	}
	p.formData = form
	return nil
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	return p.formData != nil && p.formData.Has(key)
}

// Get returns a sanitized string value, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Int returns a required integer field.
func (p *RequestBodyParser) Int(key string) (int, error) {
	if !p.Has(key) {
		return 0, badRequest("%s is required", key)
	}
	v := p.Get(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s %q is not an integer", key, v)
	}
	return n, nil
}

// MonthDelta reads the required delta of a month navigation.
func (p *RequestBodyParser) MonthDelta() (int, error) {
	delta, err := p.Int("delta")
	if err != nil {
		return 0, err
	}
	if delta < -core.MaxMonthShift || delta > core.MaxMonthShift {
		return 0, badRequest("delta %d is outside [-%d, %d]", delta, core.MaxMonthShift, core.MaxMonthShift)
	}
	return delta, nil
}

// Ints reads several required integer fields in order.
func (p *RequestBodyParser) Ints(keys ...string) ([]int, error) {
	out := make([]int, len(keys))
	for i, key := range keys {
		n, err := p.Int(key)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// OptionalInt returns def when key is absent.
func (p *RequestBodyParser) OptionalInt(key string, def int) (int, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Int(key)
}

// Amount reads a money field leniently: absent or non-numeric input is 0.
func (p *RequestBodyParser) Amount(key string) float64 {
	return core.ParseAmount(p.Get(key))
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// UserID returns the X-User-ID header, or def when the header is absent.
func UserID(r *http.Request, def string) (string, error) {
	id := sanitizeInput(r.Header.Get(UserIDHeader))
	if id == "" {
		return def, nil
	}
	if len(id) > maxUserIDBytes || strings.Contains(id, "/") {
		return "", badRequest("invalid %s header", UserIDHeader)
	}
	return id, nil
}

// PathIndex parses an integer path parameter. Range checks belong to the edit.
func PathIndex(r *http.Request, name string) (int, error) {
	v := r.PathValue(name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s %q is not an integer", name, v)
	}
	return n, nil
}
