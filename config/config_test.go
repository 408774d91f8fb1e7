package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := Load([]byte(`{"max_step_frequency": 60000}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxStepFrequency != 60000 {
		t.Fatalf("max_step_frequency = %d, want 60000", cfg.MaxStepFrequency)
	}
	if len(cfg.Axes) == 0 {
		t.Fatalf("expected default axes to be filled in")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load([]byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error for malformed JSON")
	}
}

func TestValidateRejectsMissingAxis(t *testing.T) {
	cfg := Default()
	delete(cfg.Axes, "z")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing z axis")
	}
}
