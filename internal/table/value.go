// Package table holds the in-memory tabular model shared by ingestion,
// the column registry and the template engine.
package table

import (
	"math"
	"strconv"
)

// Kind tags the scalar stored in a Value.
type Kind uint8

const (
	Missing Kind = iota
	Text
	Int
	Float
)

// Value is a single cell. The zero Value is Missing.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

func IntValue(n int64) Value { return Value{Kind: Int, Int: n} }

// FloatValue stores integral floats as Int so that spreadsheet numbers such
// as phone numbers render without a trailing ".0".
func FloatValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return IntValue(int64(f))
	}
	return Value{Kind: Float, Float: f}
}

// IsMissing reports whether the cell carries no value at all.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// String renders the value the way it is fed into format codes.
func (v Value) String() string {
	switch v.Kind {
	case Text:
		return v.Str
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return ""
	}
}

// Interface returns the value in the form the xlsx writer expects.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case Text:
		return v.Str
	case Int:
		return v.Int
	case Float:
		return v.Float
	default:
		return nil
	}
}

// Equal compares kind and rendered value.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.String() == o.String()
}
