// Package headers maps the free-form header labels of a tabular store onto
// stable logical keys.
package headers

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps historical header spellings to the canonical key used by
// the services. Keys on both sides are already normalized.
var aliases = map[string]string{
	"numerodeinscricao":  "codigo",
	"numeroinscricao":    "codigo",
	"codigodeinscricao":  "codigo",
	"inscricao":          "codigo",
	"cpfdoparticipante":  "cpf",
	"documento":          "cpf",
	"nomecompleto":       "nome",
	"nomedoparticipante": "nome",
	"nomeparacracha":     "nomecracha",
	"nomenocracha":       "nomecracha",
	"funcao":             "cargo",
	"cargofuncao":        "cargo",
	"revisado":           "conferido",
	"checkin":            "conferido",
	"revisadopor":        "conferidopor",
	"revisadoem":         "conferidoem",
	"dataconferencia":    "conferidoem",
	"datadeconferencia":  "conferidoem",
	"datadeinscricao":    "criadoem",
	"datainscricao":      "criadoem",
	"carimbodedatahora":  "criadoem",
}

// connectors stay lowercase in TitleCase output.
var connectors = map[string]bool{
	"da": true, "de": true, "do": true, "das": true, "dos": true, "e": true,
}

// NormalizeKey lowercases text, strips combining diacritics and drops every
// character outside [a-z0-9]. It never fails and is idempotent.
func NormalizeKey(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveAlias returns the canonical key for a normalized key.
func ResolveAlias(key string) string {
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// Key is ResolveAlias(NormalizeKey(header)).
func Key(header string) string {
	return ResolveAlias(NormalizeKey(header))
}

// TitleCase lowercases text and capitalizes the first letter of every
// whitespace-separated token except the connectors da, de, do, das, dos and e.
// Runs of whitespace collapse to one space.
func TitleCase(text string) string {
	tokens := strings.Fields(strings.ToLower(text))
	for i, token := range tokens {
		if connectors[token] {
			continue
		}
		tokens[i] = upperFirst(token)
	}
	return strings.Join(tokens, " ")
}

func upperFirst(token string) string {
	r, size := utf8.DecodeRuneInString(token)
	if r == utf8.RuneError {
		return token
	}
	return string(unicode.ToUpper(r)) + token[size:]
}
