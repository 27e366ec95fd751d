package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRules is returned for a template without rules.
var ErrNoRules = errors.New("template has no rules")

// ColumnMismatchError lists every referenced column absent from the data.
type ColumnMismatchError struct {
	Missing []string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("column mismatch: missing %s", strings.Join(e.Missing, ", "))
}

// Validate checks every column reference of every rule against the unique
// column list and reports all missing names at once.
func Validate(t *Template, unique []string) error {
	if t == nil || len(t.Rules) == 0 {
		return ErrNoRules
	}

	known := make(map[string]bool, len(unique))
	for _, c := range unique {
		known[c] = true
	}

	var missing []string
	note := func(name string) {
		if !known[name] && !contains(missing, name) {
			missing = append(missing, name)
		}
	}

	for _, r := range t.Rules {
		for _, tok := range r.Tokens {
			switch tok.Kind {
			case SingleColumn, Literal:
				note(tok.Name)
			case MultiColumn:
				for _, c := range tok.Columns {
					note(c)
				}
			}
		}
	}

	if len(missing) > 0 {
		return &ColumnMismatchError{Missing: missing}
	}
	return nil
}
