package app

import (
	"encoding/json"
	"strings"
)

// Logical column keys, as produced by headers.Key.
const (
	keyCode       = "codigo"
	keyIdentifier = "cpf"
	keyName       = "nome"
	keyBadgeName  = "nomecracha"
	keyRole       = "cargo"
	keyCreatedAt  = "criadoem"
	keyReviewed   = "conferido"
	keyReviewedBy = "conferidopor"
	keyReviewedAt = "conferidoem"
)

// identifierDigits is the length of a valid cpf.
const identifierDigits = 11

var titleCasedKeys = []string{keyName, keyBadgeName, keyRole}

// truthyTokens mark a row as reviewed, compared after headers.NormalizeKey.
var truthyTokens = map[string]bool{
	"sim": true, "s": true, "x": true, "ok": true, "true": true,
	"1": true, "yes": true, "conferido": true, "revisado": true,
}

// Record is one data row keyed by logical column. RowIndex is the row's
// external position and is zero for rows not read from the store.
type Record struct {
	Fields   map[string]string
	RowIndex int
}

func (r Record) Get(key string) string {
	return r.Fields[key]
}

// Identifier returns the digits of the record's cpf.
func (r Record) Identifier() string {
	return onlyDigits(r.Fields[keyIdentifier])
}

func (r Record) Code() string      { return strings.TrimSpace(r.Fields[keyCode]) }
func (r Record) Name() string      { return strings.TrimSpace(r.Fields[keyName]) }
func (r Record) BadgeName() string { return strings.TrimSpace(r.Fields[keyBadgeName]) }
func (r Record) Role() string      { return strings.TrimSpace(r.Fields[keyRole]) }

// Reviewed reports whether the review column holds a truthy token.
func (r Record) Reviewed() bool { return isTruthy(r.Fields[keyReviewed]) }

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.RowIndex > 0 {
		out["_rowIndex"] = r.RowIndex
	}
	return json.Marshal(out)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// quoteIdentifier stores digits as text so leading zeros survive.
func quoteIdentifier(s string) string {
	digits := onlyDigits(s)
	if digits == "" {
		return ""
	}
	return "'" + digits
}

// unquoteIdentifier drops the text marker written by quoteIdentifier so
// callers see the bare digits.
func unquoteIdentifier(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "'")
}

func sameCode(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
