package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var index = map[int]string{
	1: "name",
	2: "phone",
	3: "phone",
	4: "email",
	5: "2023",
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		raw       []string
		want      []Token
		wantNotes int
	}{
		{
			name: "blank",
			raw:  []string{"0"},
			want: []Token{BlankToken()},
		},
		{
			name: "column with formats and align",
			raw:  []string{"2", "d", "e", "l"},
			want: []Token{ColumnToken("phone"), FormatToken("d"), FormatToken("e"), AlignToken("l")},
		},
		{
			name:      "unresolved number dropped",
			raw:       []string{"99", "f"},
			want:      []Token{FormatToken("f")},
			wantNotes: 1,
		},
		{
			name:      "repeated name dropped",
			raw:       []string{"2", "3", "f"},
			want:      []Token{ColumnToken("phone"), FormatToken("f")},
			wantNotes: 1,
		},
		{
			name: "list resolves and dedupes",
			raw:  []string{"[1,2,3,42,1]"},
			want: []Token{ColumnsToken([]string{"name", "phone"})},
		},
		{
			name: "empty list degenerates to blank",
			raw:  []string{"[77,88]", "a"},
			want: []Token{BlankToken(), FormatToken("a")},
		},
		{
			name: "list drops non-numeric items",
			raw:  []string{"[1,phone,4]"},
			want: []Token{ColumnsToken([]string{"name", "email"})},
		},
		{
			name: "list of names only degenerates to blank",
			raw:  []string{"[city,email]"},
			want: []Token{BlankToken()},
		},
		{
			name: "list dedupe does not reach single columns",
			raw:  []string{"2", "[2,4]"},
			want: []Token{ColumnToken("phone"), ColumnsToken([]string{"phone", "email"})},
		},
		{
			name: "literal name kept",
			raw:  []string{"city", "h"},
			want: []Token{LiteralToken("city"), FormatToken("h")},
		},
		{
			name:      "literal then same number dropped",
			raw:       []string{"email", "4"},
			want:      []Token{LiteralToken("email")},
			wantNotes: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notes := Resolve(tt.raw, index)
			assert.Equal(t, tt.want, got)
			assert.Len(t, notes, tt.wantNotes)
		})
	}
}

func TestResolve_UnresolvedNoteCarriesToken(t *testing.T) {
	_, notes := Resolve([]string{"12"}, index)
	require.Len(t, notes, 1)

	var unresolved *UnresolvedColumnError
	require.True(t, errors.As(notes[0], &unresolved))
	assert.Equal(t, "12", unresolved.Token)
}

func TestRule_NormalizedAndAlign(t *testing.T) {
	r := Rule{Output: "stamp", Tokens: []Token{AlignToken("r"), FormatToken("a"), AlignToken("l")}}

	assert.Equal(t, []Token{BlankToken(), FormatToken("a")}, r.Normalized())
	assert.Equal(t, "left", r.Align())

	assert.Equal(t, "center", Rule{Tokens: []Token{ColumnToken("x")}}.Align())
	assert.Empty(t, Rule{}.Normalized())
}

func TestValidate_ListsAllMissing(t *testing.T) {
	tmpl := &Template{Rules: []Rule{
		{Output: "A", Tokens: []Token{LiteralToken("name"), FormatToken("f")}},
		{Output: "B", Tokens: []Token{LiteralToken("mobile")}},
		{Output: "C", Tokens: []Token{ColumnsToken([]string{"email", "city", "mobile"})}},
		{Output: "D", Tokens: []Token{BlankToken(), FormatToken("a")}},
	}}

	err := Validate(tmpl, []string{"name", "email"})

	var mismatch *ColumnMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"mobile", "city"}, mismatch.Missing)
	assert.Contains(t, err.Error(), "mobile, city")

	assert.NoError(t, Validate(tmpl, []string{"name", "email", "city", "mobile"}))
	assert.ErrorIs(t, Validate(&Template{}, nil), ErrNoRules)
}

func TestCodec_RoundTrip(t *testing.T) {
	tmpl := &Template{Rules: []Rule{
		{Output: "Mobile", Tokens: []Token{ColumnToken("phone"), FormatToken("d"), FormatToken("e"), AlignToken("r")}},
		{Output: "Full", Tokens: []Token{ColumnsToken([]string{"first", "last"}), FormatToken("h")}},
		{Output: "Year", Tokens: []Token{ColumnToken("2023")}},
		{
			Output:     "Tier",
			Tokens:     []Token{ColumnToken("notes"), FormatToken("k")},
			Dictionary: NewDictionary("vip", "Gold", "new", "Bronze", "churn", "Lost"),
		},
		{Output: "Empty", Tokens: []Token{BlankToken()}},
	}}

	data, err := Encode(tmpl)
	require.NoError(t, err)

	back, err := Decode("x.json", data)
	require.NoError(t, err)
	require.Len(t, back.Rules, len(tmpl.Rules))

	for i, r := range back.Rules {
		orig := tmpl.Rules[i]
		assert.Equal(t, orig.Output, r.Output)
		require.Len(t, r.Tokens, len(orig.Tokens))
		for j, tok := range r.Tokens {
			assert.Equal(t, orig.Tokens[j].String(), tok.String())
		}
	}

	// Column tokens come back as names, including numeric-looking ones.
	assert.Equal(t, LiteralToken("2023"), back.Rules[2].Tokens[0])
	assert.Equal(t, []string{"vip", "new", "churn"}, back.Rules[3].Dictionary.Keys())
	assert.Nil(t, back.Rules[0].Dictionary)
}

func TestDecode_PersistedLayout(t *testing.T) {
	doc := `[
  ["Name", "name", "h", "l"],
  ["Source", "0", "a"],
  ["Tags", "[tag one,tag two]", "k", {"b": "B", "a": "A"}]
]`
	tmpl, err := Decode("t.json", []byte(doc))
	require.NoError(t, err)
	require.Len(t, tmpl.Rules, 3)

	assert.Equal(t, []Token{LiteralToken("name"), FormatToken("h"), AlignToken("l")}, tmpl.Rules[0].Tokens)
	assert.Equal(t, []Token{BlankToken(), FormatToken("a")}, tmpl.Rules[1].Tokens)
	assert.Equal(t, ColumnsToken([]string{"tag one", "tag two"}), tmpl.Rules[2].Tokens[0])
	assert.Equal(t, []string{"b", "a"}, tmpl.Rules[2].Dictionary.Keys())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("bad.json", []byte(`[[]]`))
	assert.Error(t, err)

	_, err = Decode("bad.json", []byte(`[["x", 5]]`))
	assert.Error(t, err)

	_, err = Decode("bad.json", []byte(`{"x": 1}`))
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	tmpl := &Template{Rules: []Rule{{Output: "A", Tokens: []Token{ColumnToken("name")}}}}
	path, err := store.Save("contacts", tmpl)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contacts.json"), path)
	assert.Equal(t, "contacts.json", tmpl.Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	_, err = store.Save("billing.json", tmpl)
	require.NoError(t, err)

	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"billing.json", "contacts.json"}, names)

	loaded, err := store.Load("contacts")
	require.NoError(t, err)
	assert.Equal(t, "contacts.json", loaded.Name)
	assert.Equal(t, "name", loaded.Rules[0].Tokens[0].Name)

	_, err = store.Load("missing")
	assert.Error(t, err)
}

func TestStore_ListMissingDir(t *testing.T) {
	names, err := NewStore(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Nil(t, names)
}
