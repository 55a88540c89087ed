// Package corpus loads the knowledge base from a CSV file.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kailas-cloud/askme/internal/domain"
)

// Load reads a CSV file with a header row and returns one Record per data row,
// in file order. Each record's text is its row flattened as "header: value"
// lines joined by a newline.
func Load(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, domain.ErrLoad, err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Parse reads CSV data from r. See Load.
func Parse(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row: %w", domain.ErrLoad)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w: %w", domain.ErrLoad, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []domain.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ErrFieldCount lands here for ragged rows.
			return nil, fmt.Errorf("read row %d: %w: %w", len(records)+1, domain.ErrLoad, err)
		}
		records = append(records, domain.Record{
			Ordinal: len(records),
			Text:    flatten(header, row),
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows: %w", domain.ErrLoad)
	}
	return records, nil
}

func flatten(header, row []string) string {
	var b strings.Builder
	for i, h := range header {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(h)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(row[i]))
	}
	return b.String()
}
