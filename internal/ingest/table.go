package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/citystrata/citystrata/internal/model"
)

// Table is a header plus a stream of data rows. Rows and Errs are closed
// when the source is exhausted.
type Table struct {
	Header []string
	Rows   <-chan []string
	Errs   <-chan error
	closer io.Closer
}

// Close releases the underlying file.
func (t *Table) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// OpenTable opens a .csv or .xlsx file. sheet selects an XLSX sheet by
// name; empty means the first sheet.
func OpenTable(ctx context.Context, path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		t, err := StreamCSV(ctx, f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, err
		}
		t.closer = f
		return t, nil
	case ".xlsx":
		return ReadXLSX(path, sheet)
	default:
		return nil, eris.Wrapf(model.ErrInvalidParameter, "ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// StreamCSV reads the header synchronously and streams the remaining rows.
// Fields are trimmed and rows may vary in length.
func StreamCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("ingest: csv is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	header = trimAll(header)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: read csv row")
				return
			}

			select {
			case rowCh <- trimAll(record):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return &Table{Header: header, Rows: rowCh, Errs: errCh}, nil
}

// ReadXLSX loads one sheet into memory. The first row is the header.
func ReadXLSX(path, sheetName string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("ingest: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: sheet %q is empty", sheet.Name)
	}

	rowCh := make(chan []string, len(sheet.Rows))
	errCh := make(chan error)
	for _, row := range sheet.Rows[1:] {
		rowCh <- rowToStrings(row)
	}
	close(rowCh)
	close(errCh)

	return &Table{Header: rowToStrings(sheet.Rows[0]), Rows: rowCh, Errs: errCh}, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func trimAll(record []string) []string {
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
	return record
}
