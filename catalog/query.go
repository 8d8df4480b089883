package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// QueryKind tells how a locator query is matched against the catalog
type QueryKind int

const (
	QueryByName QueryKind = iota
	QueryByUUID
)

// Query is a parsed locator
type Query struct {
	Kind  QueryKind `json:"kind"`
	Value string    `json:"value"`
}

// ParseQuery classifies input as an update identifier or a version name.
// Identifiers are returned in canonical lowercase form, so braces and the
// urn:uuid: prefix are accepted.
func ParseQuery(input string) Query {
	trimmed := strings.TrimSpace(input)
	if id, err := uuid.Parse(trimmed); err == nil {
		return Query{Kind: QueryByUUID, Value: id.String()}
	}
	return Query{Kind: QueryByName, Value: trimmed}
}

var versionNumberPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(\.\d+)?$`)

// IsVersionNumber reports whether s looks like 1.20.0 or 1.20.0.1
func IsVersionNumber(s string) bool {
	return versionNumberPattern.MatchString(s)
}
