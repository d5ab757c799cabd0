// Package config loads the pipeline tuning configuration.
//
// Tuning values ship as a JSON file whose fields are all optional: any
// field omitted from the file falls back to the built-in default through
// the Get* accessors, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the root configuration for pipeline tuning
// parameters. The JSON schema is shared between the batch CLI and tests.
type TuningConfig struct {
	// Ingestion params
	NativeRate *float64 `json:"native_rate,omitempty"` // acquisition rate in Hz
	TargetRate *float64 `json:"target_rate,omitempty"` // resampled rate in Hz

	// Filter params
	PassbandLow     *float64 `json:"passband_low,omitempty"`     // Hz
	PassbandHigh    *float64 `json:"passband_high,omitempty"`    // Hz
	TransitionWidth *float64 `json:"transition_width,omitempty"` // Hz, FIR order heuristic

	// Referencing params
	DropReference *bool `json:"drop_reference,omitempty"` // drop bipolar reference channels after re-referencing

	// Channel quality params
	KurtosisThreshold *float64 `json:"kurtosis_threshold,omitempty"` // z-score flag threshold

	// Decomposition params
	ICASeed            *int64   `json:"ica_seed,omitempty"`
	ICAMaxIterations   *int     `json:"ica_max_iterations,omitempty"`
	ICAConvergence     *float64 `json:"ica_convergence,omitempty"` // weight-change stop criterion
	RejectThreshold    *float64 `json:"reject_threshold,omitempty"`
	RankTolerance      *float64 `json:"rank_tolerance,omitempty"` // relative singular-value cutoff

	// Spectral params
	WelchWindowSeconds *float64 `json:"welch_window_seconds,omitempty"`
	RelativePowerUpper *float64 `json:"relative_power_upper,omitempty"` // Hz, normalization band edge
}

// EmptyTuningConfig returns a TuningConfig with all fields unset so every
// accessor reports its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.NativeRate != nil && *c.NativeRate <= 0 {
		return fmt.Errorf("native_rate must be positive, got %f", *c.NativeRate)
	}
	if c.TargetRate != nil && *c.TargetRate <= 0 {
		return fmt.Errorf("target_rate must be positive, got %f", *c.TargetRate)
	}
	if c.PassbandLow != nil && *c.PassbandLow <= 0 {
		return fmt.Errorf("passband_low must be positive, got %f", *c.PassbandLow)
	}
	if c.PassbandHigh != nil && c.PassbandLow != nil && *c.PassbandHigh <= *c.PassbandLow {
		return fmt.Errorf("passband_high (%f) must exceed passband_low (%f)", *c.PassbandHigh, *c.PassbandLow)
	}
	if c.KurtosisThreshold != nil && *c.KurtosisThreshold <= 0 {
		return fmt.Errorf("kurtosis_threshold must be positive, got %f", *c.KurtosisThreshold)
	}
	if c.RejectThreshold != nil && (*c.RejectThreshold < 0 || *c.RejectThreshold > 1) {
		return fmt.Errorf("reject_threshold must be between 0 and 1, got %f", *c.RejectThreshold)
	}
	if c.ICAMaxIterations != nil && *c.ICAMaxIterations <= 0 {
		return fmt.Errorf("ica_max_iterations must be positive, got %d", *c.ICAMaxIterations)
	}
	if c.WelchWindowSeconds != nil && *c.WelchWindowSeconds <= 0 {
		return fmt.Errorf("welch_window_seconds must be positive, got %f", *c.WelchWindowSeconds)
	}
	return nil
}

// GetNativeRate returns the acquisition sampling rate or the default.
func (c *TuningConfig) GetNativeRate() float64 {
	if c.NativeRate == nil {
		return 2048.0
	}
	return *c.NativeRate
}

// GetTargetRate returns the resampled rate or the default.
func (c *TuningConfig) GetTargetRate() float64 {
	if c.TargetRate == nil {
		return 250.0
	}
	return *c.TargetRate
}

// GetPassbandLow returns the bandpass lower edge or the default.
func (c *TuningConfig) GetPassbandLow() float64 {
	if c.PassbandLow == nil {
		return 0.2
	}
	return *c.PassbandLow
}

// GetPassbandHigh returns the bandpass upper edge or the default.
func (c *TuningConfig) GetPassbandHigh() float64 {
	if c.PassbandHigh == nil {
		return 30.0
	}
	return *c.PassbandHigh
}

// GetTransitionWidth returns the FIR transition bandwidth or the default.
func (c *TuningConfig) GetTransitionWidth() float64 {
	if c.TransitionWidth == nil {
		return 0.5
	}
	return *c.TransitionWidth
}

// GetDropReference reports whether the bipolar reference channels are
// dropped from the output after re-referencing. Default: retained.
func (c *TuningConfig) GetDropReference() bool {
	if c.DropReference == nil {
		return false
	}
	return *c.DropReference
}

// GetKurtosisThreshold returns the channel flag threshold or the default.
func (c *TuningConfig) GetKurtosisThreshold() float64 {
	if c.KurtosisThreshold == nil {
		return 5.0
	}
	return *c.KurtosisThreshold
}

// GetICASeed returns the decomposition seed or the default. The seed is
// logged and persisted with the pre-rejection checkpoint so a run can be
// reproduced.
func (c *TuningConfig) GetICASeed() int64 {
	if c.ICASeed == nil {
		return 1
	}
	return *c.ICASeed
}

// GetICAMaxIterations returns the iteration cap or the default.
func (c *TuningConfig) GetICAMaxIterations() int {
	if c.ICAMaxIterations == nil {
		return 512
	}
	return *c.ICAMaxIterations
}

// GetICAConvergence returns the weight-change stop criterion or the default.
func (c *TuningConfig) GetICAConvergence() float64 {
	if c.ICAConvergence == nil {
		return 1e-6
	}
	return *c.ICAConvergence
}

// GetRejectThreshold returns the component rejection probability floor.
func (c *TuningConfig) GetRejectThreshold() float64 {
	if c.RejectThreshold == nil {
		return 0.70
	}
	return *c.RejectThreshold
}

// GetRankTolerance returns the relative singular-value cutoff used by the
// numerical rank estimate.
func (c *TuningConfig) GetRankTolerance() float64 {
	if c.RankTolerance == nil {
		return 1e-7
	}
	return *c.RankTolerance
}

// GetWelchWindowSeconds returns the Welch window length in seconds.
func (c *TuningConfig) GetWelchWindowSeconds() float64 {
	if c.WelchWindowSeconds == nil {
		return 2.0
	}
	return *c.WelchWindowSeconds
}

// GetRelativePowerUpper returns the relative-power normalization band
// edge in Hz. It deliberately matches the filter passband upper edge so
// energy outside the analysed band does not dilute the normalization.
func (c *TuningConfig) GetRelativePowerUpper() float64 {
	if c.RelativePowerUpper == nil {
		return 30.0
	}
	return *c.RelativePowerUpper
}
