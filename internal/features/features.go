// Package features derives model inputs from raw card transactions.
//
// The same derivation runs on the training frame and on single records
// posted to the prediction endpoint, so both see identical columns.
package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
)

// Derived column names, in the order Engineer appends them.
const (
	Hour     = "Hour"
	IsNight  = "Is_Night"
	V11V4    = "V11_V4"
	V17V14   = "V17_V14"
	VMean    = "V_mean"
	VStd     = "V_std"
	secInDay = 24 * 3600
)

// Engineered lists the derived columns.
var Engineered = []string{Hour, IsNight, V11V4, V17V14, VMean, VStd}

// aggregated are the components summarised by V_mean and V_std.
var aggregated = []string{"V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8", "V9", "V10"}

var ErrMissingBase = errors.New("features: missing base column")

// HourOfDay buckets a seconds offset into its hour of the day, 0 to 23.
// Negative offsets count back from midnight.
func HourOfDay(seconds float64) float64 {
	m := math.Mod(seconds, secInDay)
	if m < 0 {
		m += secInDay
	}
	return math.Floor(m / 3600)
}

// Night reports 1 for hours before 6:00 or from 18:00 on.
func Night(hour float64) float64 {
	if hour < 6 || hour >= 18 {
		return 1
	}
	return 0
}

// derive computes every engineered value from a lookup of base columns.
func derive(get func(string) float64) [6]float64 {
	hour := HourOfDay(get("Time"))

	vals := make([]float64, len(aggregated))
	for i, name := range aggregated {
		vals[i] = get(name)
	}
	mean, std := stat.MeanStdDev(vals, nil)

	return [6]float64{
		hour,
		Night(hour),
		get("V11") * get("V4"),
		get("V17") * get("V14"),
		mean,
		std,
	}
}

// baseColumns are the inputs derive reads.
func baseColumns() []string {
	cols := []string{"Time", "V4", "V11", "V14", "V17"}
	return append(cols, aggregated...)
}

// Engineer appends the derived columns to f in place.
func Engineer(f *dataset.Frame) error {
	idx := make(map[string]int)
	for _, name := range baseColumns() {
		i := f.Index(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrMissingBase, name)
		}
		idx[name] = i
	}

	columns := make([][]float64, len(Engineered))
	for c := range columns {
		columns[c] = make([]float64, f.Len())
	}
	for r, row := range f.Rows {
		d := derive(func(name string) float64 { return row[idx[name]] })
		for c := range d {
			columns[c][r] = d[c]
		}
	}

	for c, name := range Engineered {
		if err := f.AddColumn(name, columns[c]); err != nil {
			return err
		}
	}
	return nil
}

// EngineerRecord fills the derived values missing from a single record.
// Values already present are kept. Base columns are only required when
// at least one derived value is missing.
func EngineerRecord(rec map[string]float64) error {
	missing := false
	for _, name := range Engineered {
		if _, ok := rec[name]; !ok {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	for _, name := range baseColumns() {
		if _, ok := rec[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingBase, name)
		}
	}

	d := derive(func(name string) float64 { return rec[name] })
	for c, name := range Engineered {
		if _, ok := rec[name]; !ok {
			rec[name] = d[c]
		}
	}
	return nil
}
