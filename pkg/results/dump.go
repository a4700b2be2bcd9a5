package results

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// WriteDump serializes every record verbatim, including the raw nested
// response bytes, for later reprocessing. Reading the dump back reproduces
// byte-for-byte-equivalent records.
func WriteDump(w io.Writer, records []Record) error {
	if err := gob.NewEncoder(w).Encode(records); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	recordsExportedTotal.WithLabelValues("dump").Add(float64(len(records)))
	return nil
}

// ReadDump loads a previously written full dump.
func ReadDump(r io.Reader) ([]Record, error) {
	var records []Record
	if err := gob.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return records, nil
}

// WriteDumpFile writes the full dump to path, creating or truncating it.
func WriteDumpFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump %s: %w", path, err)
	}
	if err := WriteDump(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadDumpFile loads a full dump from path.
func ReadDumpFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", path, err)
	}
	defer f.Close()
	return ReadDump(f)
}
