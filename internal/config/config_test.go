package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audio-mastering-engine/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultGenreTargets(t *testing.T) {
	want := map[string]float64{
		"pop":        -14,
		"rock":       -12,
		"electronic": -11,
		"jazz":       -18,
		"classical":  -20,
		"metal":      -10,
	}
	genres := DefaultGenres()
	for genre, lufs := range want {
		if got := genres[genre].TargetLUFS; got != lufs {
			t.Errorf("%s target = %v, want %v", genre, got, lufs)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
concurrency = 2

[validation]
min_duration = 10.0

[mastering]
ceiling_db = -0.5
export_formats = ["flac"]

[mastering.genres.pop]
target_lufs = -13.0
ratio = 2.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d", cfg.Concurrency)
	}
	if cfg.Validation.MinDuration != 10 {
		t.Errorf("min_duration = %v", cfg.Validation.MinDuration)
	}
	if cfg.Validation.MaxDuration != 600 {
		t.Errorf("max_duration default lost: %v", cfg.Validation.MaxDuration)
	}
	if cfg.Mastering.CeilingDB != -0.5 {
		t.Errorf("ceiling = %v", cfg.Mastering.CeilingDB)
	}
	if len(cfg.Mastering.ExportFormats) != 1 || cfg.Mastering.ExportFormats[0] != "flac" {
		t.Errorf("export formats = %v", cfg.Mastering.ExportFormats)
	}
	if got := cfg.Mastering.Genres["pop"].TargetLUFS; got != -13 {
		t.Errorf("pop target = %v", got)
	}
	if got := cfg.Mastering.Genres["jazz"].TargetLUFS; got != -18 {
		t.Errorf("jazz default lost: %v", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "bogus = 1\n"},
		{"headroom below minimum", "[mix]\nheadroom_db = 3.0\n"},
		{"noise strength out of range", "[enhancement]\nnoise_strength = 1.5\n"},
		{"positive ceiling", "[mastering]\nceiling_db = 0.5\n"},
		{"broken toml", "[mix\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mastering.DefaultGenre != "default" {
		t.Errorf("default genre = %q", cfg.Mastering.DefaultGenre)
	}
}
