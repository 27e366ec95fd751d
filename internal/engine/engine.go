// Package engine evaluates a template against the merged table.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ryabkov82/template-merger/internal/format"
	"github.com/ryabkov82/template-merger/internal/table"
	"github.com/ryabkov82/template-merger/internal/template"
)

// Column is one output column.
type Column struct {
	Name   string
	Align  string
	Values []table.Value
	// Faults counts cells whose format chain failed and were emptied.
	Faults int
}

// Output is the derived table, one column per distinct rule output name.
type Output struct {
	Columns []Column
}

// Len returns the number of rows.
func (o *Output) Len() int {
	if o == nil || len(o.Columns) == 0 {
		return 0
	}
	return len(o.Columns[0].Values)
}

// ColumnIndex returns the position of a column by name or -1.
func (o *Output) ColumnIndex(name string) int {
	for i, c := range o.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns column names in order.
func (o *Output) Names() []string {
	names := make([]string, len(o.Columns))
	for i, c := range o.Columns {
		names[i] = c.Name
	}
	return names
}

// Faults sums per-column fault counts.
func (o *Output) Faults() int {
	n := 0
	for _, c := range o.Columns {
		n += c.Faults
	}
	return n
}

// Options control evaluation.
type Options struct {
	// Now is the clock for date and time codes; time.Now when nil.
	Now func() time.Time
	// Parallel evaluates rules concurrently.
	Parallel bool
	// Workers bounds concurrent rules; GOMAXPROCS when zero.
	Workers int
	Logger  *slog.Logger
}

// Engine evaluates templates. It holds no per-run state.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{opts: opts}
}

// ErrNilTemplate is returned when there is nothing to evaluate.
var ErrNilTemplate = errors.New("engine: nil template")

// Evaluate applies every rule to every row of m. Rules never observe each
// other's output. The only errors are context cancellation and a nil
// template; per-cell faults degrade to empty strings.
func (e *Engine) Evaluate(ctx context.Context, t *template.Template, m *table.Merged) (*Output, error) {
	if t == nil {
		return nil, ErrNilTemplate
	}

	now := e.opts.Now()
	cols := make([]Column, len(t.Rules))

	if e.opts.Parallel && len(t.Rules) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for i := range t.Rules {
			i := i
			g.Go(func() error {
				col, err := evalRule(gctx, t.Rules[i], m, now)
				if err != nil {
					return err
				}
				cols[i] = col
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, r := range t.Rules {
			col, err := evalRule(ctx, r, m, now)
			if err != nil {
				return nil, err
			}
			cols[i] = col
		}
	}

	out := &Output{}
	pos := make(map[string]int)
	for _, c := range cols {
		if c.Faults > 0 {
			e.opts.Logger.Warn("format faults emptied cells", "column", c.Name, "cells", c.Faults)
		}
		// A repeated output name replaces the earlier column in place.
		if i, ok := pos[c.Name]; ok {
			out.Columns[i] = c
			continue
		}
		pos[c.Name] = len(out.Columns)
		out.Columns = append(out.Columns, c)
	}

	e.opts.Logger.Debug("template evaluated",
		"template", t.Name,
		"rules", len(t.Rules),
		"rows", m.Len(),
	)
	return out, nil
}

// ctxCheckInterval is how many rows are processed between context checks.
const ctxCheckInterval = 1000

// applyFunc runs one format code on a value.
type applyFunc func(code byte, v table.Value, now time.Time) (table.Value, error)

// plan is a rule compiled against the merged table's column positions.
type plan struct {
	source  template.Token
	srcCols []int
	chain   []byte
	lookup  bool
	dict    *template.Dictionary
	apply   applyFunc
}

func compile(r template.Rule, m *table.Merged) plan {
	tokens := r.Normalized()
	p := plan{source: template.BlankToken(), apply: format.Apply}

	rest := tokens
	if len(tokens) > 0 {
		first := tokens[0]
		switch first.Kind {
		case template.Blank:
			rest = tokens[1:]
		case template.SingleColumn, template.Literal:
			p.source = first
			p.srcCols = []int{m.ColumnIndex(first.Name)}
			rest = tokens[1:]
		case template.MultiColumn:
			p.source = first
			for _, c := range first.Columns {
				p.srcCols = append(p.srcCols, m.ColumnIndex(c))
			}
			rest = tokens[1:]
		}
	}

	for _, tok := range rest {
		if tok.Kind != template.FormatCode {
			continue
		}
		if tok.Name[0] == format.Lookup {
			p.lookup = true
			continue
		}
		p.chain = append(p.chain, tok.Name[0])
	}
	p.lookup = p.lookup && r.Dictionary.Len() > 0
	p.dict = r.Dictionary
	return p
}

func evalRule(ctx context.Context, r template.Rule, m *table.Merged, now time.Time) (Column, error) {
	p := compile(r, m)
	col := Column{
		Name:   r.Output,
		Align:  r.Align(),
		Values: make([]table.Value, m.Len()),
	}

	for row := 0; row < m.Len(); row++ {
		if row%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Column{}, err
			}
		}
		v, faulted := p.eval(m, row, now)
		if faulted {
			col.Faults++
		}
		col.Values[row] = v
	}
	return col, nil
}

// eval computes one cell. A faulting code empties the value for that step
// only; the rest of the chain and the lookup still run.
func (p plan) eval(m *table.Merged, row int, now time.Time) (table.Value, bool) {
	var (
		v       table.Value
		faulted bool
	)

	switch p.source.Kind {
	case template.SingleColumn, template.Literal:
		v = m.Cell(row, p.srcCols[0])
	case template.MultiColumn:
		v = table.TextValue(joinColumns(m, row, p.srcCols))
	default:
		v = table.TextValue("")
	}

	for _, code := range p.chain {
		next, err := p.apply(code, v, now)
		if err != nil {
			v = table.TextValue("")
			faulted = true
			continue
		}
		v = next
	}

	if p.lookup {
		v = table.TextValue(lookup(p.dict, v.String()))
	}
	return v, faulted
}

// joinColumns joins the distinct non-empty trimmed values of the columns
// with a single space.
func joinColumns(m *table.Merged, row int, cols []int) string {
	var parts []string
	for _, c := range cols {
		s := strings.TrimSpace(m.Cell(row, c).String())
		if s == "" || containsString(parts, s) {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// lookup collects the values of every key contained in the lower-cased
// input, in dictionary order, without repeats.
func lookup(d *template.Dictionary, s string) string {
	s = strings.ToLower(s)
	var matches []string
	for _, k := range d.Keys() {
		if !strings.Contains(s, k) {
			continue
		}
		v, _ := d.Get(k)
		if !containsString(matches, v) {
			matches = append(matches, v)
		}
	}
	return strings.Join(matches, ", ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
