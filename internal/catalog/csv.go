package catalog

import (
	"bytes"
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// LoadCSV reads a catalog CSV into an arena. Unknown columns are ignored
// so catalogs carrying extra enrichment fields still load.
func LoadCSV(path string) (*Arena, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: decode header")
	}
	dec.DisallowMissingColumns = false

	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, eris.Wrap(err, "catalog: decode rows")
	}
	return NewArena(rows)
}

// SaveCSV writes the arena back out with the canonical column set.
func SaveCSV(path string, a *Arena) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(writer)
	for i := range a.Rows() {
		if err := enc.Encode(a.At(i)); err != nil {
			return eris.Wrapf(err, "catalog: encode row %s", a.At(i).RowID)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return eris.Wrap(err, "catalog: flush csv")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "catalog: write %s", path)
	}
	return nil
}
