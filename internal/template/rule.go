package template

import (
	"fmt"
	"strconv"

	"github.com/ryabkov82/template-merger/internal/format"
)

// Rule derives one output column.
type Rule struct {
	Output     string
	Tokens     []Token
	Dictionary *Dictionary
}

// Template is an ordered list of rules; rule order is output column order.
type Template struct {
	Name  string
	Rules []Rule
}

// UsesLookup reports whether the dictionary code appears in the rule.
func (r Rule) UsesLookup() bool {
	for _, t := range r.Tokens {
		if t.Kind == FormatCode && t.Name == string(format.Lookup) {
			return true
		}
	}
	return false
}

// Align returns the presentation alignment; the last alignment code wins.
func (r Rule) Align() string {
	align := format.AlignCenter
	for _, t := range r.Tokens {
		if t.Kind == AlignCode {
			align = format.AlignName(t.Name)
		}
	}
	return align
}

// Normalized drops alignment tokens and prepends a Blank when the first
// remaining token is a format code, which is the sequence the evaluator
// walks.
func (r Rule) Normalized() []Token {
	out := make([]Token, 0, len(r.Tokens)+1)
	for _, t := range r.Tokens {
		if t.Kind != AlignCode {
			out = append(out, t)
		}
	}
	if len(out) > 0 && out[0].Kind == FormatCode {
		out = append([]Token{BlankToken()}, out...)
	}
	return out
}

// UnresolvedColumnError is a numeric column reference missing from the
// index. It is a warning: the reference is dropped.
type UnresolvedColumnError struct {
	Token string
}

func (e *UnresolvedColumnError) Error() string {
	return fmt.Sprintf("column number %s not found", e.Token)
}

// DuplicateColumnNote is reported when a column already used as a single
// column in the same rule is referenced again and skipped.
type DuplicateColumnNote struct {
	Column string
}

func (n *DuplicateColumnNote) Error() string {
	return fmt.Sprintf("column %q already added", n.Column)
}

// Resolve turns authored tokens into a rule's token sequence. Column
// numbers are looked up in index; the returned notes are non-fatal
// (*UnresolvedColumnError and *DuplicateColumnNote).
func Resolve(raw []string, index map[int]string) ([]Token, []error) {
	var (
		tokens []Token
		notes  []error
	)

	for _, tok := range raw {
		switch {
		case tok == BlankMarker:
			tokens = append(tokens, BlankToken())

		case isDigits(tok):
			name, ok := lookup(index, tok)
			if !ok {
				notes = append(notes, &UnresolvedColumnError{Token: tok})
				continue
			}
			if hasColumn(tokens, name) {
				notes = append(notes, &DuplicateColumnNote{Column: name})
				continue
			}
			tokens = append(tokens, ColumnToken(name))

		case isList(tok):
			var names []string
			for _, item := range splitList(tok) {
				// Only column numbers are accepted inside an authored list.
				if !isDigits(item) {
					continue
				}
				name, ok := lookup(index, item)
				if !ok {
					continue
				}
				if name != "" && !contains(names, name) {
					names = append(names, name)
				}
			}
			if len(names) == 0 {
				tokens = append(tokens, BlankToken())
				continue
			}
			tokens = append(tokens, ColumnsToken(names))

		case format.IsAlign(tok):
			tokens = append(tokens, AlignToken(tok))

		case format.IsFormat(tok):
			tokens = append(tokens, FormatToken(tok))

		default:
			tokens = append(tokens, LiteralToken(tok))
		}
	}

	return tokens, notes
}

// hasColumn only looks at single-column tokens; multi-column lists dedupe
// within themselves.
func hasColumn(tokens []Token, name string) bool {
	for _, t := range tokens {
		if t.IsColumn() && t.Name == name {
			return true
		}
	}
	return false
}

func lookup(index map[int]string, tok string) (string, bool) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return "", false
	}
	name, ok := index[n]
	return name, ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
