// Package http exposes the ledger as a JSON API.
//
// This file implements utilities for parsing and validating request data:
// bodies, path ids, months, rates and export formats.

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
	"time"

	"townledger/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON document into dst. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		if errors.Is(err, io.EOF) {
			return &core.ArgumentError{Argument: "body", Reason: "request body is empty"}
		}
		return &core.ArgumentError{Argument: "body", Reason: err.Error()}
	}
	if dec.More() {
		return &core.ArgumentError{Argument: "body", Reason: "unexpected data after JSON document"}
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &core.ArgumentError{Argument: name, Reason: fmt.Sprintf("expected a positive id, got %q", raw)}
	}
	return id, nil
}

func pathMonth(r *http.Request) (core.Month, error) {
	m, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		return core.Month{}, err
	}
	return m, m.Validate()
}

// queryInt returns def when the parameter is absent.
func queryInt(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ArgumentError{Argument: name, Reason: fmt.Sprintf("expected a number, got %q", v)}
	}
	return n, nil
}

// parseRates reads water, security and sanitation rates from the query.
// Missing parameters take the default rate.
func parseRates(q url.Values, defaults core.Rates) (core.Rates, error) {
	rates := defaults
	for _, p := range []struct {
		name string
		dst  *core.Money
	}{
		{"water", &rates.Water},
		{"security", &rates.Security},
		{"sanitation", &rates.Sanitation},
	} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		m, err := core.ParseAmount(v)
		if err != nil {
			return core.Rates{}, &core.ArgumentError{Argument: p.name + " rate", Reason: fmt.Sprintf("expected a number, got %q", v)}
		}
		*p.dst = m
	}
	return rates, core.ValidateRates(rates)
}

// parseServices splits a comma separated list; empty means every service.
func parseServices(raw string) ([]core.Service, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Services, nil
	}
	var out []core.Service
	seen := make(map[core.Service]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := core.ParseService(part)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// parseDefaulterQuery builds a query from scope, year, month and services
// parameters. Year and month default to now.
func parseDefaulterQuery(q url.Values, defaults core.Rates, now time.Time) (core.DefaulterQuery, error) {
	scope, err := core.ParseScope(q.Get("scope"))
	if err != nil {
		return core.DefaulterQuery{}, err
	}
	year, err := queryInt(q, "year", now.Year())
	if err != nil {
		return core.DefaulterQuery{}, err
	}
	month, err := queryInt(q, "month", int(now.Month()))
	if err != nil {
		return core.DefaulterQuery{}, err
	}
	services, err := parseServices(q.Get("services"))
	if err != nil {
		return core.DefaulterQuery{}, err
	}
	rates, err := parseRates(q, defaults)
	if err != nil {
		return core.DefaulterQuery{}, err
	}
	dq := core.DefaulterQuery{Scope: scope, Year: year, Month: month, Rates: rates, Services: services}
	return dq, dq.Validate()
}

// parseResidentFilter reads repeated or comma separated street and
// facility parameters.
func parseResidentFilter(q url.Values) (core.ResidentFilter, error) {
	f := core.ResidentFilter{Streets: splitValues(q["street"])}
	for _, v := range splitValues(q["facility"]) {
		s, err := core.ParseService(v)
		if err != nil {
			return core.ResidentFilter{}, err
		}
		f.Facilities = append(f.Facilities, s)
	}
	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type exportFormat string

const (
	formatJSON exportFormat = "json"
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
)

func parseFormat(q url.Values) (exportFormat, error) {
	switch f := exportFormat(strings.ToLower(strings.TrimSpace(q.Get("format")))); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatCSV, formatXLSX:
		return f, nil
	default:
		return "", &core.ArgumentError{Argument: "format", Reason: fmt.Sprintf("unknown format %q", f)}
	}
}
