package eeg

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayout32(t *testing.T) {
	l := DefaultLayout32()
	if err := l.Validate(); err != nil {
		t.Fatalf("built-in layout invalid: %v", err)
	}
	if l.Channels() != 32 {
		t.Fatalf("Channels() = %d, want 32", l.Channels())
	}

	if l.Labels[l.RefPair[0]] != "TP9" || l.Labels[l.RefPair[1]] != "TP10" {
		t.Errorf("reference pair = %s/%s, want TP9/TP10",
			l.Labels[l.RefPair[0]], l.Labels[l.RefPair[1]])
	}

	// All electrodes sit on (or very near) the unit sphere.
	for i, p := range l.Positions {
		if n := p.Norm(); math.Abs(n-1) > 0.01 {
			t.Errorf("electrode %s (%d) has norm %f, want 1", l.Labels[i], i, n)
		}
	}
}

func TestPositionUnit(t *testing.T) {
	p := Position{X: 3, Y: 0, Z: 4}
	u := p.Unit()
	if math.Abs(u.Norm()-1) > 1e-12 {
		t.Errorf("Unit().Norm() = %f, want 1", u.Norm())
	}
	zero := Position{}
	if zero.Unit() != zero {
		t.Error("Unit() of zero vector should be unchanged")
	}
}

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.json")
	body := `{
  "labels": ["A", "B", "C"],
  "positions": [{"x": 1, "y": 0, "z": 0}, {"x": 0, "y": 1, "z": 0}, {"x": 0, "y": 0, "z": 1}],
  "ref_pair": [0, 2]
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if l.Channels() != 3 || l.RefPair != [2]int{0, 2} {
		t.Errorf("loaded layout = %+v", l)
	}
}

func TestLoadLayoutRejectsBadRefPair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.json")
	body := `{
  "labels": ["A", "B"],
  "positions": [{"x": 1, "y": 0, "z": 0}, {"x": 0, "y": 1, "z": 0}],
  "ref_pair": [0, 5]
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLayout(path); err == nil {
		t.Error("expected error for out-of-range reference index")
	}
}
