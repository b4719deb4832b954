package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Component columns of the anonymised card transaction schema.
const NumComponents = 28

// RawColumns returns the raw transaction header: Time, V1..V28, Amount, Class.
func RawColumns(target string) []string {
	cols := make([]string, 0, NumComponents+3)
	cols = append(cols, "Time")
	for i := 1; i <= NumComponents; i++ {
		cols = append(cols, fmt.Sprintf("V%d", i))
	}
	return append(cols, "Amount", target)
}

// fraudShift moves selected components for fraudulent rows so the classes
// are separable, resembling the strongest signals of real card data.
var fraudShift = map[int]float64{
	1: -2.5, 3: -3.5, 4: 3.0, 7: -2.5, 10: -3.5,
	11: 2.5, 12: -4.0, 14: -5.0, 16: -2.5, 17: -4.5,
}

// Synthesize generates n labelled card transactions spread over two days.
// Exactly round(n*fraudRate) rows are fraudulent and carry shifted
// components, night-time timestamps more often and more varied amounts.
func Synthesize(n int, fraudRate float64, seed int64, target string) *Frame {
	rng := rand.New(rand.NewSource(seed))

	nFraud := int(math.Round(float64(n) * fraudRate))
	isFraud := make([]bool, n)
	for _, i := range rng.Perm(n)[:nFraud] {
		isFraud[i] = true
	}

	columns := RawColumns(target)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(columns))

		day := float64(rng.Intn(2))
		var hour float64
		if isFraud[i] && rng.Float64() < 0.6 {
			// Between 0:00 and 6:00
			hour = rng.Float64() * 6
		} else {
			// Business hours, 7:00 to 22:00
			hour = 7 + rng.Float64()*15
		}
		row[0] = math.Floor(day*86400 + hour*3600)

		for v := 1; v <= NumComponents; v++ {
			x := rng.NormFloat64()
			if isFraud[i] {
				x = x*1.5 + fraudShift[v]
			}
			row[v] = x
		}

		var amount float64
		if isFraud[i] {
			amount = rng.ExpFloat64() * 120
		} else {
			amount = rng.ExpFloat64() * 88
		}
		row[NumComponents+1] = math.Round(amount*100) / 100

		if isFraud[i] {
			row[NumComponents+2] = 1
		}
		rows[i] = row
	}

	return &Frame{Columns: columns, Rows: rows}
}
