// Package contracts reads declared API contracts from YAML, JSON or CSV
// files.
package contracts

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/stackscope/internal/apperr"
)

// Contract is one declared endpoint.
type Contract struct {
	Path    string         `json:"path"`
	Method  string         `json:"method"`
	Service string         `json:"service,omitempty"`
	Version string         `json:"version,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
	Source  string         `json:"source"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Load reads the contracts declared in path. The format follows the file
// extension. Methods are upper-cased, paths trimmed, and records without a
// path are dropped.
func Load(path string) ([]Contract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("contracts: open %s: %w", path, err)
	}
	defer f.Close()

	var records []map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		records, err = decodeDocument(f, func(r io.Reader, v any) error { return yaml.NewDecoder(r).Decode(v) })
	case ".json":
		records, err = decodeDocument(f, func(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) })
	case ".csv":
		records, err = decodeCSV(f)
	default:
		return nil, fmt.Errorf("contracts: unsupported format %q: %w", ext, apperr.ErrInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("contracts: read %s: %w", path, err)
	}

	out := make([]Contract, 0, len(records))
	for _, rec := range records {
		if c, ok := fromRecord(rec, path); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// decodeDocument accepts either a top-level list of records or a mapping
// with a "contracts" list.
func decodeDocument(r io.Reader, decode func(io.Reader, any) error) ([]map[string]any, error) {
	var doc any
	if err := decode(r, &doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["contracts"]
	}
	if doc == nil {
		return nil, nil
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of contracts: %w", apperr.ErrInvalid)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("contract %d is not a mapping: %w", i, apperr.ErrInvalid)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if !contains(header, "path") || !contains(header, "method") {
		return nil, fmt.Errorf("csv header needs path and method columns: %w", apperr.ErrInvalid)
	}

	var out []map[string]any
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) && h != "" {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
}

var knownKeys = map[string]bool{
	"path": true, "method": true, "service": true, "version": true, "errors": true,
}

func fromRecord(rec map[string]any, source string) (Contract, bool) {
	c := Contract{
		Path:    strings.TrimSpace(str(rec["path"])),
		Method:  strings.ToUpper(strings.TrimSpace(str(rec["method"]))),
		Service: strings.TrimSpace(str(rec["service"])),
		Version: strings.TrimSpace(str(rec["version"])),
		Errors:  list(rec["errors"]),
		Source:  source,
	}
	if c.Path == "" {
		return Contract{}, false
	}
	for k, v := range rec {
		if knownKeys[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = map[string]any{}
		}
		c.Extra[k] = v
	}
	return c, true
}

func str(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// list accepts a sequence or a comma-separated string.
func list(v any) []string {
	var out []string
	switch v := v.(type) {
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
