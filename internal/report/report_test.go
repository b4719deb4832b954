package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func checkPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Errorf("%s is not a PNG file", path)
	}
}

func TestConfusionMatrixPNG(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cm   [2][2]int
	}{
		{"mixed", [2][2]int{{50, 3}, {4, 43}}},
		{"uniform", [2][2]int{{0, 0}, {0, 0}}},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, "results", tt.name+".png")
		if err := ConfusionMatrixPNG(path, tt.cm); err != nil {
			t.Fatalf("%s: ConfusionMatrixPNG failed: %v", tt.name, err)
		}
		checkPNG(t, path)
	}
}

func TestROCCurvePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roc_curve.png")
	fpr := []float64{0, 0, 0.5, 1}
	tpr := []float64{0, 0.5, 1, 1}
	if err := ROCCurvePNG(path, fpr, tpr, 0.875); err != nil {
		t.Fatalf("ROCCurvePNG failed: %v", err)
	}
	checkPNG(t, path)

	if err := ROCCurvePNG(path, fpr, tpr[:2], 0.5); err == nil {
		t.Error("expected error for mismatched curve lengths")
	}
}
