package filesystem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/normalisers"
)

// textKeys are tried in order for a record's text.
var textKeys = []string{"content", "text", "body", "markdown", "html"}

// passthroughKeys are always present on JSON documents, defaulting to "".
var passthroughKeys = []string{"url", "section", "version", "recipe_name"}

// record is a decoded JSON object with its keys in source order.
type record struct {
	fields map[string]any
	keys   []string
}

func newRecord(fields map[string]any, raw []byte) record {
	keys, err := objectKeys(raw)
	if err != nil || len(keys) != len(fields) {
		keys = sortedKeys(fields)
	}
	return record{fields: fields, keys: keys}
}

// normaliseJSON turns a JSON file into documents. An object is one
// document, a list is one document per element. Invalid JSON is kept as
// raw text.
func normaliseJSON(path, text string) []domain.Document {
	id := normalisers.DocumentID(path)
	raw := []byte(text)

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return []domain.Document{{ID: id, Content: strings.TrimSpace(text), Metadata: baseMetadata(path)}}
	}

	switch v := payload.(type) {
	case map[string]any:
		meta := baseMetadata(path)
		addPassthrough(meta, v)
		return []domain.Document{{ID: id, Content: recordText(newRecord(v, raw)), Metadata: meta}}

	case []any:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil || len(elems) != len(v) {
			elems = make([]json.RawMessage, len(v))
		}
		docs := make([]domain.Document, 0, len(v))
		for i, elem := range v {
			docs = append(docs, recordDocument(path, id, i, elem, elems[i]))
		}
		return docs

	default:
		return []domain.Document{{ID: id, Content: strings.TrimSpace(scalarString(v)), Metadata: baseMetadata(path)}}
	}
}

func recordDocument(path, fileID string, i int, elem any, raw json.RawMessage) domain.Document {
	meta := baseMetadata(path)
	meta["record_index"] = i
	doc := domain.Document{ID: fmt.Sprintf("%s:%d", fileID, i), Metadata: meta}

	fields, ok := elem.(map[string]any)
	if !ok {
		doc.Content = strings.TrimSpace(scalarString(elem))
		return doc
	}

	if rid, ok := fields["id"]; ok {
		if s := scalarString(rid); s != "" {
			doc.ID = s
		}
	}
	addPassthrough(meta, fields)
	for k, val := range fields {
		if k == "id" || isTextKey(k) {
			continue
		}
		switch val.(type) {
		case string, float64, bool:
			meta[k] = scalarString(val)
		}
	}
	doc.Content = recordText(newRecord(fields, raw))
	return doc
}

// recordText returns the first string candidate key, or every string
// value and string list element joined by newlines in source order.
func recordText(rec record) string {
	for _, key := range textKeys {
		if s, ok := rec.fields[key].(string); ok {
			return strings.TrimSpace(s)
		}
	}

	var values []string
	for _, key := range rec.keys {
		switch v := rec.fields[key].(type) {
		case string:
			values = append(values, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(values, "\n"))
}

// objectKeys lists the top-level keys of a JSON object in source order.
// A repeated key is listed once.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	seen := make(map[string]bool)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func addPassthrough(meta map[string]any, rec map[string]any) {
	for _, key := range passthroughKeys {
		meta[key] = scalarString(rec[key])
	}
}

func isTextKey(k string) bool {
	for _, key := range textKeys {
		if k == key {
			return true
		}
	}
	return false
}

// scalarString formats a decoded JSON value. Nested values are re-encoded.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
