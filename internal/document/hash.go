package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainContent is the hash domain for document content. The version suffix
// leaves room for changing the algorithm later.
const DomainContent = "formsession/document/v1"

// contentView is the part of a Document that defines its identity as
// content. Revision and PersistedAt describe the session and the backend,
// not the edit, so they are excluded.
type contentView struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Fields   []Field  `json:"fields"`
	Design   Design   `json:"design"`
	Behavior Behavior `json:"behavior"`
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of doc. Two documents with equal content
// hash identically regardless of revision, persist time, nil-vs-empty
// option lists or map ordering.
func Hash(doc Document) (string, error) {
	fields := doc.Fields
	if fields == nil {
		fields = []Field{}
	}
	canonical, err := MarshalCanonical(contentView{
		ID:       doc.ID,
		Title:    doc.Title,
		Fields:   fields,
		Design:   doc.Design,
		Behavior: doc.Behavior,
	})
	if err != nil {
		return "", fmt.Errorf("hash document %s: %w", doc.ID, err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}
