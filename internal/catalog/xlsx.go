package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ImportXLSX reads a personal catalog spreadsheet (first sheet, header
// row) into an arena. Only the user-owned columns are read; diagnostics
// columns start blank.
func ImportXLSX(path string) (*Arena, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("catalog: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return NewArena(nil)
	}

	header := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		name := strings.TrimSpace(cell.String())
		if name != "" {
			header[strings.ToLower(name)] = i
		}
	}
	cell := func(cells []*xlsx.Cell, col string) string {
		i, ok := header[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i].String())
	}

	var rows []Row
	for _, xr := range sheet.Rows[1:] {
		r := Row{
			RowID:    cell(xr.Cells, "rowid"),
			Name:     cell(xr.Cells, "name"),
			Platform: cell(xr.Cells, "platform"),
			Disabled: cell(xr.Cells, "disabled"),
			YearHint: cell(xr.Cells, "yearhint"),
		}
		if r.Name == "" {
			continue
		}
		rows = append(rows, r)
	}
	return NewArena(rows)
}
