package eeg

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Position is a 3-D electrode position on an idealised unit-sphere head
// (x toward the right ear, y toward the nasion, z toward the vertex).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of the position vector.
func (p Position) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Unit returns the position projected onto the unit sphere.
func (p Position) Unit() Position {
	n := p.Norm()
	if n == 0 {
		return p
	}
	return Position{X: p.X / n, Y: p.Y / n, Z: p.Z / n}
}

// ChannelLayout maps channel identifiers to electrode positions and pins
// the two bipolar reference channels. A layout is immutable and shared
// read-only across every recording in a batch.
type ChannelLayout struct {
	Labels    []string   `json:"labels"`
	Positions []Position `json:"positions"`
	// RefPair holds the indices of the two designated bipolar reference
	// channels within Labels.
	RefPair [2]int `json:"ref_pair"`
}

// Channels returns the channel count of the layout.
func (l *ChannelLayout) Channels() int { return len(l.Labels) }

// Position returns the electrode position for a channel index.
func (l *ChannelLayout) Position(ch int) Position { return l.Positions[ch] }

// Validate checks the layout invariants.
func (l *ChannelLayout) Validate() error {
	if len(l.Labels) == 0 || len(l.Labels) != len(l.Positions) {
		return fmt.Errorf("layout has %d labels and %d positions", len(l.Labels), len(l.Positions))
	}
	for _, ref := range l.RefPair {
		if ref < 0 || ref >= len(l.Labels) {
			return fmt.Errorf("reference channel index %d out of range (%d channels)", ref, len(l.Labels))
		}
	}
	return nil
}

// LoadLayout reads a ChannelLayout from a JSON file.
func LoadLayout(path string) (*ChannelLayout, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read layout file: %w", err)
	}
	var l ChannelLayout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout JSON: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return &l, nil
}

// DefaultLayout32 returns the built-in 32-electrode 10-20 montage used by
// the reference deployment. TP9 and TP10 (near the mastoids) form the
// bipolar reference pair.
func DefaultLayout32() *ChannelLayout {
	l := &ChannelLayout{
		Labels: []string{
			"Fp1", "Fp2", "F7", "F3", "Fz", "F4", "F8",
			"FC5", "FC1", "FC2", "FC6",
			"TP9", "T7", "C3", "Cz", "C4", "T8", "TP10",
			"CP5", "CP1", "CP2", "CP6",
			"P7", "P3", "Pz", "P4", "P8",
			"PO9", "O1", "Oz", "O2", "PO10",
		},
		Positions: []Position{
			{-0.309, 0.951, 0.000}, // Fp1
			{0.309, 0.951, 0.000},  // Fp2
			{-0.809, 0.588, 0.000}, // F7
			{-0.545, 0.673, 0.500}, // F3
			{0.000, 0.707, 0.707},  // Fz
			{0.545, 0.673, 0.500},  // F4
			{0.809, 0.588, 0.000},  // F8
			{-0.887, 0.333, 0.320}, // FC5
			{-0.375, 0.375, 0.848}, // FC1
			{0.375, 0.375, 0.848},  // FC2
			{0.887, 0.333, 0.320},  // FC6
			{-0.944, -0.309, -0.114}, // TP9
			{-1.000, 0.000, 0.000}, // T7
			{-0.707, 0.000, 0.707}, // C3
			{0.000, 0.000, 1.000},  // Cz
			{0.707, 0.000, 0.707},  // C4
			{1.000, 0.000, 0.000},  // T8
			{0.944, -0.309, -0.114}, // TP10
			{-0.887, -0.333, 0.320}, // CP5
			{-0.375, -0.375, 0.848}, // CP1
			{0.375, -0.375, 0.848},  // CP2
			{0.887, -0.333, 0.320},  // CP6
			{-0.809, -0.588, 0.000}, // P7
			{-0.545, -0.673, 0.500}, // P3
			{0.000, -0.707, 0.707},  // Pz
			{0.545, -0.673, 0.500},  // P4
			{0.809, -0.588, 0.000},  // P8
			{-0.530, -0.831, -0.170}, // PO9
			{-0.309, -0.951, 0.000}, // O1
			{0.000, -1.000, 0.000},  // Oz
			{0.309, -0.951, 0.000},  // O2
			{0.530, -0.831, -0.170}, // PO10
		},
	}
	l.RefPair = [2]int{11, 17} // TP9, TP10
	return l
}
