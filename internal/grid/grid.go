// Package grid models the 5×4 STAR progress table.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Rows  = 5
	Cols  = 4
	Total = Rows * Cols
)

var ErrOutOfRange = errors.New("cell out of range")

// Column letters, in column order.
var Letters = [Cols]string{"S", "T", "A", "R"}

var ColumnTitles = [Cols]string{"Study", "Try", "Apply", "Reflect"}

var RowTitles = [Rows]string{
	"Integrated Perspective",
	"Humans, Society, Environment and Happiness",
	"Natural Environment and Humans",
	"Culture and Diversity",
	"Living Space and Society",
}

// prompts asked before a cell in that column is marked complete.
var prompts = map[string]string{
	"S": "Have you studied everything in this unit's workbook?",
	"T": "Did you actively take part using this unit's learning kit?",
	"A": "Did you solve this unit's sliding puzzle correctly?",
	"R": "Have you finished this unit's gem cross-stitch?",
}

const RedoPrompt = "Do you want to redo this?"

// Cells holds completed cells keyed by "{col}-{row}". A key is present only
// when the cell is complete; false is never stored.
type Cells map[string]bool

func Valid(col, row int) bool {
	return col >= 0 && col < Cols && row >= 0 && row < Rows
}

func Key(col, row int) string {
	return strconv.Itoa(col) + "-" + strconv.Itoa(row)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (col, row int, err error) {
	c, r, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, fmt.Errorf("bad cell key %q", key)
	}
	if col, err = strconv.Atoi(c); err != nil {
		return 0, 0, fmt.Errorf("bad cell key %q", key)
	}
	if row, err = strconv.Atoi(r); err != nil {
		return 0, 0, fmt.Errorf("bad cell key %q", key)
	}
	if !Valid(col, row) {
		return 0, 0, ErrOutOfRange
	}
	return col, row, nil
}

// Letter returns the column letter, or "" for an invalid column.
func Letter(col int) string {
	if col < 0 || col >= Cols {
		return ""
	}
	return Letters[col]
}

// Normalize copies m keeping only true values under valid keys. Keys are
// rewritten in canonical form, so "00-0" and "0-0" name the same cell.
func Normalize(m map[string]bool) Cells {
	out := Cells{}
	for k, v := range m {
		if !v {
			continue
		}
		col, row, err := ParseKey(k)
		if err != nil {
			continue
		}
		out[Key(col, row)] = true
	}
	return out
}

// Decode reads a stored cell_data value. Empty input is an empty grid.
func Decode(raw string) (Cells, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Cells{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	marks := make(map[string]bool, len(m))
	for k, v := range m {
		marks[k] = truthy(v)
	}
	return Normalize(marks), nil
}

// truthy mirrors how older clients read a stored mark: anything but false,
// zero, "" and null counts as complete.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

func (c Cells) Encode() (string, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c Cells) Has(col, row int) bool {
	return c[Key(col, row)]
}

// Toggle returns a copy of c with the cell at (col, row) flipped.
func (c Cells) Toggle(col, row int) (Cells, error) {
	if !Valid(col, row) {
		return nil, ErrOutOfRange
	}
	out := make(Cells, len(c)+1)
	for k, v := range c {
		if v {
			out[k] = true
		}
	}
	k := Key(col, row)
	if out[k] {
		delete(out, k)
	} else {
		out[k] = true
	}
	return out, nil
}

// Count is the number of completed cells.
func (c Cells) Count() int {
	n := 0
	for _, v := range c {
		if v {
			n++
		}
	}
	return n
}

func (c Cells) IsComplete() bool { return c.Count() == Total }

// Prompt is the confirmation question shown before toggling (col, row).
func (c Cells) Prompt(col, row int) string {
	if c.Has(col, row) {
		return RedoPrompt
	}
	return prompts[Letter(col)]
}

// Change describes how a toggle moved the grid relative to completion.
type Change struct {
	Before, After int
}

// Celebrate reports that the grid has just become complete.
func (ch Change) Celebrate() bool { return ch.Before < Total && ch.After == Total }

// Cleared reports that a complete grid has just lost a cell.
func (ch Change) Cleared() bool { return ch.Before == Total && ch.After < Total }

func Transition(before, after Cells) Change {
	return Change{Before: before.Count(), After: after.Count()}
}

// Full returns a complete grid.
func Full() Cells {
	out := make(Cells, Total)
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows; row++ {
			out[Key(col, row)] = true
		}
	}
	return out
}
