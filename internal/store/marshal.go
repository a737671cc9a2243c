package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/formsession/internal/document"
)

// marshalDocument converts a document to canonical JSON TEXT for storage.
func marshalDocument(doc document.Document) (string, error) {
	data, err := document.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored body.
func unmarshalDocument(data string) (document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return document.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
