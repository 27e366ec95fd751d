// Package template holds the rule model: tokens, rules, resolution of
// authored tokens against a column registry, validation and persistence.
package template

import (
	"strings"

	"github.com/ryabkov82/template-merger/internal/format"
)

// TokenKind is the closed set of token variants.
type TokenKind uint8

const (
	Blank TokenKind = iota
	SingleColumn
	MultiColumn
	FormatCode
	AlignCode
	Literal
)

func (k TokenKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case SingleColumn:
		return "column"
	case MultiColumn:
		return "columns"
	case FormatCode:
		return "format"
	case AlignCode:
		return "align"
	case Literal:
		return "literal"
	}
	return "unknown"
}

// BlankMarker is the persisted form of a Blank token.
const BlankMarker = "0"

// Token is one resolved element of a rule.
type Token struct {
	Kind TokenKind
	// Name is the column for SingleColumn and Literal, the code for
	// FormatCode and AlignCode.
	Name string
	// Columns is set for MultiColumn only.
	Columns []string
}

func BlankToken() Token { return Token{Kind: Blank} }

func ColumnToken(name string) Token { return Token{Kind: SingleColumn, Name: name} }

func ColumnsToken(names []string) Token { return Token{Kind: MultiColumn, Columns: names} }

func FormatToken(code string) Token { return Token{Kind: FormatCode, Name: code} }

func AlignToken(code string) Token { return Token{Kind: AlignCode, Name: code} }

func LiteralToken(name string) Token { return Token{Kind: Literal, Name: name} }

// IsColumn reports whether the token reads a single column.
func (t Token) IsColumn() bool { return t.Kind == SingleColumn || t.Kind == Literal }

// String returns the persisted form of the token.
func (t Token) String() string {
	switch t.Kind {
	case Blank:
		return BlankMarker
	case MultiColumn:
		return "[" + strings.Join(t.Columns, ",") + "]"
	default:
		return t.Name
	}
}

// ParseToken reads a persisted token. Column references are names, so
// digit-only tokens are names too and the column index is never consulted.
func ParseToken(raw string) Token {
	switch {
	case raw == BlankMarker:
		return BlankToken()
	case format.IsAlign(raw):
		return AlignToken(raw)
	case format.IsFormat(raw):
		return FormatToken(raw)
	case isList(raw):
		var names []string
		for _, item := range splitList(raw) {
			if item != "" && !contains(names, item) {
				names = append(names, item)
			}
		}
		if len(names) == 0 {
			return BlankToken()
		}
		return ColumnsToken(names)
	}
	return LiteralToken(raw)
}

func isList(raw string) bool {
	return len(raw) >= 2 && strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")
}

func splitList(raw string) []string {
	inner := strings.Trim(raw, "[]")
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
