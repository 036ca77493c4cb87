package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "s3cret")
	p := writeConfig(t, "port: 9090\ntoken: ${SAMPLE_TOKEN}\n")

	cfg := sample{Name: "default", Port: 1}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.Token != "s3cret" || cfg.Name != "default" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}

	if err := Load(writeConfig(t, "port: [oops"), &cfg); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("bad yaml err = %v", err)
	}

	cfg = sample{}
	if err := Load(writeConfig(t, "port: 0"), &cfg); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("invalid config err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &cfg)
	if err != nil || found {
		t.Fatalf("LoadOptional missing = %v, %v", found, err)
	}
	if cfg.Port != 8080 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	cfg = sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &cfg); err == nil {
		t.Error("defaults should still be validated")
	}

	found, err = LoadOptional(writeConfig(t, "port: 7000"), &cfg)
	if err != nil || !found || cfg.Port != 7000 {
		t.Errorf("LoadOptional existing = %v, %v, %+v", found, err, cfg)
	}
}
