package template

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the rule as [output, token..., {dictionary}?]. The
// dictionary is written only when the rule uses the lookup code.
func (r Rule) MarshalJSON() ([]byte, error) {
	elems := make([]interface{}, 0, len(r.Tokens)+2)
	elems = append(elems, r.Output)
	for _, t := range r.Tokens {
		elems = append(elems, t.String())
	}
	if r.UsesLookup() && r.Dictionary != nil {
		elems = append(elems, r.Dictionary)
	}
	return json.Marshal(elems)
}

// UnmarshalJSON reads the persisted rule array.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	if len(elems) == 0 {
		return fmt.Errorf("rule: empty array")
	}

	var out Rule
	if err := json.Unmarshal(elems[0], &out.Output); err != nil {
		return fmt.Errorf("rule: output name: %w", err)
	}

	rest := elems[1:]
	if n := len(rest); n > 0 && isObject(rest[n-1]) {
		out.Dictionary = &Dictionary{}
		if err := json.Unmarshal(rest[n-1], out.Dictionary); err != nil {
			return fmt.Errorf("rule %q: %w", out.Output, err)
		}
		rest = rest[:n-1]
	}

	for i, raw := range rest {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("rule %q: token %d: %w", out.Output, i+1, err)
		}
		out.Tokens = append(out.Tokens, ParseToken(s))
	}

	*r = out
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Encode writes the template document, indented by two spaces.
func Encode(t *Template) ([]byte, error) {
	rules := t.Rules
	if rules == nil {
		rules = []Rule{}
	}
	return json.MarshalIndent(rules, "", "  ")
}

// Decode reads a template document.
func Decode(name string, data []byte) (*Template, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &Template{Name: name, Rules: rules}, nil
}
