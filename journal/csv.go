package journal

import (
	"encoding/csv"
	"io"
	"os"
	"time"
)

// ExportCSV writes ledger records with a header row.
func ExportCSV(w io.Writer, recs []LedgerRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "type", "delta", "reference", "time"}); err != nil {
		return err
	}
	for _, r := range recs {
		err := cw.Write([]string{
			r.ID,
			r.Type,
			r.Delta.String(),
			r.Reference,
			r.Time.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSVFile writes ledger records to a file.
func ExportCSVFile(path string, recs []LedgerRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
