package catalog

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Arena owns the catalog rows for one pass, indexed by position, with
// RowId as a stable lookup key. Row mutation always goes through a row
// pointer obtained from the arena; there is no dual positional/label
// indexing.
type Arena struct {
	rows []Row
	byID map[string]int
}

// NewArena builds an arena and its RowId index. RowIds must be unique;
// rows missing one are assigned a deterministic id derived from position.
func NewArena(rows []Row) (*Arena, error) {
	a := &Arena{rows: rows, byID: make(map[string]int, len(rows))}
	for i := range a.rows {
		id := strings.TrimSpace(a.rows[i].RowID)
		if id == "" {
			id = fmt.Sprintf("row-%04d", i+1)
			a.rows[i].RowID = id
		}
		if prev, dup := a.byID[id]; dup {
			return nil, eris.Errorf("catalog: duplicate RowId %q at positions %d and %d", id, prev, i)
		}
		a.byID[id] = i
	}
	return a, nil
}

// Len returns the number of rows.
func (a *Arena) Len() int { return len(a.rows) }

// At returns the row at a position for in-place mutation.
func (a *Arena) At(i int) *Row { return &a.rows[i] }

// ByID returns the row with the given RowId, or nil.
func (a *Arena) ByID(id string) *Row {
	i, ok := a.byID[strings.TrimSpace(id)]
	if !ok {
		return nil
	}
	return &a.rows[i]
}

// Rows returns the backing slice for serialization.
func (a *Arena) Rows() []Row { return a.rows }
