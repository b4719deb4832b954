package mlp

import "math"

const bceEps = 1e-7

func clip(p float64) float64 {
	return math.Min(math.Max(p, bceEps), 1-bceEps)
}

// bce is the binary cross entropy of one prediction.
func bce(pred, target float64) float64 {
	p := clip(pred)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// bceGrad is d(bce)/d(pred).
func bceGrad(pred, target float64) float64 {
	p := clip(pred)
	return (p - target) / (p * (1 - p))
}
