package restql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputMode selects how results are serialized.
type OutputMode int

const (
	JSON    OutputMode = iota // indented JSON
	YAML                      // YAML document
	Compact                   // CSV-style table or key:value lines
)

// ParseOutputMode converts a flag value to an OutputMode.
// "compact" and "llm" both map to Compact.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "compact", "llm":
		return Compact, nil
	default:
		return 0, fmt.Errorf("unknown format %q: use \"json\", \"yaml\" or \"compact\"", s)
	}
}

// Render serializes v in the given mode. fieldOrder only affects Compact.
func Render(v any, mode OutputMode, fieldOrder []string) ([]byte, error) {
	switch mode {
	case YAML:
		return yaml.Marshal(v)
	case Compact:
		return FormatCompact(v, fieldOrder)
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}

// FormatCompact formats a result in compact tabular format.
//
// Lists of maps become a header row of comma-separated field names followed by
// one row per item. A single map becomes key:value pairs, one per line; error
// maps and anything else fall back to JSON.
func FormatCompact(result any, fieldOrder []string) ([]byte, error) {
	switch v := result.(type) {
	case []map[string]any:
		return formatList(v, fieldOrder)
	case []any:
		return formatAnyList(v, fieldOrder)
	case map[string]any:
		if _, hasError := v["error"]; hasError {
			return json.Marshal(v)
		}
		return formatSingle(v, fieldOrder)
	default:
		return json.Marshal(result)
	}
}

// formatList formats a slice of maps as a CSV-style table.
func formatList(items []map[string]any, fieldOrder []string) ([]byte, error) {
	if len(fieldOrder) == 0 {
		fieldOrder = unionKeys(items)
	}

	var b strings.Builder
	b.WriteString(strings.Join(fieldOrder, ","))
	b.WriteByte('\n')
	for _, item := range items {
		for i, field := range fieldOrder {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeCSV(item[field]))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// formatAnyList interprets []any as a list of maps; mixed lists fall back to JSON.
func formatAnyList(items []any, fieldOrder []string) ([]byte, error) {
	maps := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return json.Marshal(items)
		}
		maps = append(maps, m)
	}
	return formatList(maps, fieldOrder)
}

// formatSingle formats a single map as key:value pairs, one per line.
func formatSingle(m map[string]any, fieldOrder []string) ([]byte, error) {
	if len(fieldOrder) == 0 || !hasOverlap(fieldOrder, m) {
		fieldOrder = mapKeys(m)
	}

	var b strings.Builder
	for _, field := range fieldOrder {
		b.WriteString(field)
		b.WriteByte(':')
		b.WriteString(escapeKV(m[field]))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// escapeCSV quotes values containing commas, quotes or newlines.
func escapeCSV(val any) string {
	s := formatValue(val)
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// escapeKV keeps each key:value pair on one line.
func escapeKV(val any) string {
	s := formatValue(val)
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

// formatValue converts a value to text. Slices and maps are JSON-encoded.
func formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case []any, map[string]any, []map[string]any, []string:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", val)
}

func hasOverlap(fieldOrder []string, m map[string]any) bool {
	for _, f := range fieldOrder {
		if _, ok := m[f]; ok {
			return true
		}
	}
	return false
}

// mapKeys returns the keys of a map in sorted order.
func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// unionKeys returns every key used by any item, sorted.
func unionKeys(items []map[string]any) []string {
	set := make(map[string]any)
	for _, item := range items {
		for k := range item {
			set[k] = nil
		}
	}
	return mapKeys(set)
}
