package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetNativeRate() != 2048.0 {
		t.Errorf("GetNativeRate() = %f, want 2048", cfg.GetNativeRate())
	}
	if cfg.GetTargetRate() != 250.0 {
		t.Errorf("GetTargetRate() = %f, want 250", cfg.GetTargetRate())
	}
	if cfg.GetPassbandLow() != 0.2 {
		t.Errorf("GetPassbandLow() = %f, want 0.2", cfg.GetPassbandLow())
	}
	if cfg.GetPassbandHigh() != 30.0 {
		t.Errorf("GetPassbandHigh() = %f, want 30", cfg.GetPassbandHigh())
	}
	if cfg.GetTransitionWidth() != 0.5 {
		t.Errorf("GetTransitionWidth() = %f, want 0.5", cfg.GetTransitionWidth())
	}
	if cfg.GetDropReference() != false {
		t.Errorf("GetDropReference() = %v, want false", cfg.GetDropReference())
	}
	if cfg.GetKurtosisThreshold() != 5.0 {
		t.Errorf("GetKurtosisThreshold() = %f, want 5", cfg.GetKurtosisThreshold())
	}
	if cfg.GetICASeed() != 1 {
		t.Errorf("GetICASeed() = %d, want 1", cfg.GetICASeed())
	}
	if cfg.GetICAMaxIterations() != 512 {
		t.Errorf("GetICAMaxIterations() = %d, want 512", cfg.GetICAMaxIterations())
	}
	if cfg.GetICAConvergence() != 1e-6 {
		t.Errorf("GetICAConvergence() = %g, want 1e-6", cfg.GetICAConvergence())
	}
	if cfg.GetRejectThreshold() != 0.70 {
		t.Errorf("GetRejectThreshold() = %f, want 0.70", cfg.GetRejectThreshold())
	}
	if cfg.GetRankTolerance() != 1e-7 {
		t.Errorf("GetRankTolerance() = %g, want 1e-7", cfg.GetRankTolerance())
	}
	if cfg.GetWelchWindowSeconds() != 2.0 {
		t.Errorf("GetWelchWindowSeconds() = %f, want 2", cfg.GetWelchWindowSeconds())
	}
	if cfg.GetRelativePowerUpper() != 30.0 {
		t.Errorf("GetRelativePowerUpper() = %f, want 30", cfg.GetRelativePowerUpper())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "native_rate": 1024,
  "target_rate": 256,
  "passband_low": 1.0,
  "passband_high": 40.0,
  "kurtosis_threshold": 4.0,
  "ica_seed": 42,
  "reject_threshold": 0.9
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetNativeRate() != 1024 {
		t.Errorf("GetNativeRate() = %f, want 1024", cfg.GetNativeRate())
	}
	if cfg.GetTargetRate() != 256 {
		t.Errorf("GetTargetRate() = %f, want 256", cfg.GetTargetRate())
	}
	if cfg.GetPassbandLow() != 1.0 {
		t.Errorf("GetPassbandLow() = %f, want 1", cfg.GetPassbandLow())
	}
	if cfg.GetPassbandHigh() != 40.0 {
		t.Errorf("GetPassbandHigh() = %f, want 40", cfg.GetPassbandHigh())
	}
	if cfg.GetKurtosisThreshold() != 4.0 {
		t.Errorf("GetKurtosisThreshold() = %f, want 4", cfg.GetKurtosisThreshold())
	}
	if cfg.GetICASeed() != 42 {
		t.Errorf("GetICASeed() = %d, want 42", cfg.GetICASeed())
	}
	if cfg.GetRejectThreshold() != 0.9 {
		t.Errorf("GetRejectThreshold() = %f, want 0.9", cfg.GetRejectThreshold())
	}

	// Fields not present in the JSON keep their defaults.
	if cfg.GetWelchWindowSeconds() != 2.0 {
		t.Errorf("GetWelchWindowSeconds() = %f, want default 2", cfg.GetWelchWindowSeconds())
	}
	if cfg.GetICAMaxIterations() != 512 {
		t.Errorf("GetICAMaxIterations() = %d, want default 512", cfg.GetICAMaxIterations())
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadTuningConfig(filepath.Join(tmpDir, "nope.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "tuning.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("Expected error for non-JSON extension")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := map[string]string{
			"negative rate":       `{"native_rate": -1}`,
			"inverted passband":   `{"passband_low": 30, "passband_high": 10}`,
			"threshold over one":  `{"reject_threshold": 1.5}`,
			"zero iterations":     `{"ica_max_iterations": 0}`,
			"zero welch window":   `{"welch_window_seconds": 0}`,
			"negative kurt limit": `{"kurtosis_threshold": -2}`,
		}
		for name, body := range cases {
			path := filepath.Join(tmpDir, "case.json")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadTuningConfig(path); err == nil {
				t.Errorf("%s: expected validation error", name)
			}
		}
	})
}
