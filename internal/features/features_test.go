package features

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
)

func TestHourOfDay(t *testing.T) {
	tests := []struct {
		seconds float64
		want    float64
	}{
		{0, 0},
		{3599, 0},
		{3600, 1},
		{86399, 23},
		{86400, 0},
		{86400 + 5*3600 + 10, 5},
		{172792, 23},
		{-1, 23},
		{-3600, 23},
		{-86400 - 2*3600, 22},
	}
	for _, tt := range tests {
		if got := HourOfDay(tt.seconds); got != tt.want {
			t.Errorf("HourOfDay(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestNight(t *testing.T) {
	for hour := 0.0; hour < 24; hour++ {
		want := 0.0
		if hour < 6 || hour >= 18 {
			want = 1
		}
		if got := Night(hour); got != want {
			t.Errorf("Night(%v) = %v, want %v", hour, got, want)
		}
	}
}

func sampleRecord() map[string]float64 {
	rec := map[string]float64{"Time": 7 * 3600, "Amount": 10}
	for i := 1; i <= dataset.NumComponents; i++ {
		rec["V"+strconv.Itoa(i)] = 0
	}
	for i := 1; i <= 10; i++ {
		rec["V"+strconv.Itoa(i)] = float64(i)
	}
	rec["V11"] = 2
	rec["V14"] = -3
	rec["V17"] = 4
	return rec
}

func TestEngineerRecord(t *testing.T) {
	rec := sampleRecord()
	if err := EngineerRecord(rec); err != nil {
		t.Fatalf("EngineerRecord failed: %v", err)
	}

	if rec[Hour] != 7 {
		t.Errorf("Hour = %v, want 7", rec[Hour])
	}
	if rec[IsNight] != 0 {
		t.Errorf("Is_Night = %v, want 0", rec[IsNight])
	}
	if rec[V11V4] != 8 {
		t.Errorf("V11_V4 = %v, want 8", rec[V11V4])
	}
	if rec[V17V14] != -12 {
		t.Errorf("V17_V14 = %v, want -12", rec[V17V14])
	}
	if rec[VMean] != 5.5 {
		t.Errorf("V_mean = %v, want 5.5", rec[VMean])
	}
	// Sample standard deviation of 1..10.
	if math.Abs(rec[VStd]-3.0276503540974917) > 1e-12 {
		t.Errorf("V_std = %v, want 3.02765", rec[VStd])
	}
}

func TestEngineerRecordKeepsProvidedValues(t *testing.T) {
	rec := sampleRecord()
	rec[Hour] = 99
	if err := EngineerRecord(rec); err != nil {
		t.Fatalf("EngineerRecord failed: %v", err)
	}
	if rec[Hour] != 99 {
		t.Errorf("Hour = %v, want caller value 99", rec[Hour])
	}

	full := map[string]float64{Hour: 1, IsNight: 1, V11V4: 1, V17V14: 1, VMean: 1, VStd: 1}
	if err := EngineerRecord(full); err != nil {
		t.Errorf("complete record needs no base columns, got %v", err)
	}
}

func TestEngineerRecordMissingBase(t *testing.T) {
	rec := sampleRecord()
	delete(rec, "V14")
	if err := EngineerRecord(rec); !errors.Is(err, ErrMissingBase) {
		t.Errorf("EngineerRecord() error = %v, want ErrMissingBase", err)
	}
}

func TestEngineerFrame(t *testing.T) {
	f := dataset.Synthesize(50, 0.1, 3, "Class")
	before := len(f.Columns)
	if err := Engineer(f); err != nil {
		t.Fatalf("Engineer failed: %v", err)
	}
	if len(f.Columns) != before+len(Engineered) {
		t.Fatalf("columns = %d, want %d", len(f.Columns), before+len(Engineered))
	}
	for i, name := range Engineered {
		if f.Columns[before+i] != name {
			t.Errorf("column %d = %s, want %s", before+i, f.Columns[before+i], name)
		}
	}

	// Frame and single-record derivation agree.
	for r, row := range f.Rows {
		rec := make(map[string]float64)
		for c, name := range f.Columns[:before] {
			rec[name] = row[c]
		}
		if err := EngineerRecord(rec); err != nil {
			t.Fatalf("EngineerRecord failed: %v", err)
		}
		for i, name := range Engineered {
			if got := row[before+i]; got != rec[name] {
				t.Errorf("row %d %s = %v, record gives %v", r, name, got, rec[name])
			}
		}
	}
}

func TestEngineerMissingColumn(t *testing.T) {
	f := &dataset.Frame{Columns: []string{"Time"}, Rows: [][]float64{{1}}}
	if err := Engineer(f); !errors.Is(err, ErrMissingBase) {
		t.Errorf("Engineer() error = %v, want ErrMissingBase", err)
	}
}
