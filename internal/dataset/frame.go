// Package dataset provides the tabular frame used by every pipeline stage.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

var (
	ErrEmpty          = errors.New("dataset: no data rows")
	ErrRaggedRow      = errors.New("dataset: inconsistent number of columns")
	ErrColumnNotFound = errors.New("dataset: column not found")
	ErrDuplicate      = errors.New("dataset: duplicate column")
	ErrNotFinite      = errors.New("dataset: value is not finite")
)

// Frame is a dense numeric table with named columns.
// Rows[i][j] holds the value of Columns[j] for row i.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	col := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		col[i] = row[idx]
	}
	return col, nil
}

// AddColumn appends a column in place.
func (f *Frame) AddColumn(name string, values []float64) error {
	if f.Index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	if len(values) != len(f.Rows) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), len(f.Rows))
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// Drop returns a new frame without the named column.
func (f *Frame) Drop(name string) (*Frame, error) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}

	cols := make([]string, 0, len(f.Columns)-1)
	cols = append(cols, f.Columns[:idx]...)
	cols = append(cols, f.Columns[idx+1:]...)

	rows := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		r := make([]float64, 0, len(row)-1)
		r = append(r, row[:idx]...)
		r = append(r, row[idx+1:]...)
		rows[i] = r
	}
	return &Frame{Columns: cols, Rows: rows}, nil
}

// XY separates the target column from the features.
// The target must hold integral values.
func (f *Frame) XY(target string) (*Frame, []int, error) {
	labels, err := f.Column(target)
	if err != nil {
		return nil, nil, err
	}
	y := make([]int, len(labels))
	for i, v := range labels {
		if v != math.Trunc(v) {
			return nil, nil, fmt.Errorf("row %d: target %s is not an integer: %v", i, target, v)
		}
		y[i] = int(v)
	}
	x, err := f.Drop(target)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// WithTarget returns a frame built from feature rows plus a trailing
// target column.
func WithTarget(columns []string, rows [][]float64, target string, y []int) (*Frame, error) {
	if len(rows) != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", len(rows), len(y))
	}
	cols := make([]string, 0, len(columns)+1)
	cols = append(cols, columns...)
	cols = append(cols, target)

	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w at row %d", ErrRaggedRow, i)
		}
		r := make([]float64, 0, len(cols))
		r = append(r, row...)
		r = append(r, float64(y[i]))
		out[i] = r
	}
	return &Frame{Columns: cols, Rows: out}, nil
}

// Select returns a copy of the rows at the given indices.
func (f *Frame) Select(idx []int) *Frame {
	rows := make([][]float64, len(idx))
	for i, j := range idx {
		rows[i] = append([]float64(nil), f.Rows[j]...)
	}
	return &Frame{Columns: append([]string(nil), f.Columns...), Rows: rows}
}

// LoadCSV reads a CSV file whose first line is the header.
// Every cell must parse as a finite float.
func LoadCSV(filename string) (*Frame, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV parses CSV content from r. See LoadCSV.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: csv file is empty", ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)

	var rows [][]float64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) != len(columns) {
			return nil, fmt.Errorf("%w at line %d: got %d, want %d", ErrRaggedRow, line, len(record), len(columns))
		}

		row := make([]float64, len(record))
		for j, valStr := range record {
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at line %d, column %s: %w", line, columns[j], err)
			}
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, fmt.Errorf("%w at line %d, column %s: %s", ErrNotFinite, line, columns[j], valStr)
			}
			row[j] = val
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: csv file has a header only", ErrEmpty)
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// SaveCSV writes the frame with a header line and no index column.
func SaveCSV(filename string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := WriteCSV(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteCSV writes the frame as CSV to w.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(f.Columns))
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("%w at row %d", ErrRaggedRow, i)
		}
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CountClasses returns how many labels equal 0 and 1.
func CountClasses(y []int) (negatives, positives int) {
	for _, v := range y {
		if v == 1 {
			positives++
		} else if v == 0 {
			negatives++
		}
	}
	return negatives, positives
}
