package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Repo != "." {
		t.Errorf("Repo = %q, want %q", cfg.Repo, ".")
	}
	if cfg.Output.Dir != ".assocgen" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	if cfg.Macro.Attribute != "AssociatedObject" {
		t.Errorf("Macro.Attribute = %q", cfg.Macro.Attribute)
	}
	if cfg.Macro.DefaultPolicy != ".retain(.nonatomic)" {
		t.Errorf("Macro.DefaultPolicy = %q", cfg.Macro.DefaultPolicy)
	}
	if !cfg.IsRendererEnabled("report") {
		t.Error("report renderer should be enabled by default")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assocgen.yaml")
	yml := `repo: ./App
ignore:
  - "Generated/**"
macro:
  attribute: Assoc
  default_policy: .copy(.nonatomic)
output:
  dir: out
  in_place: true
  report: false
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repo != "./App" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
	if len(cfg.Ignore) != 1 || cfg.Ignore[0] != "Generated/**" {
		t.Errorf("Ignore = %v", cfg.Ignore)
	}
	if cfg.Macro.Attribute != "Assoc" {
		t.Errorf("Macro.Attribute = %q", cfg.Macro.Attribute)
	}
	if cfg.Macro.FlagPolicy != ".OBJC_ASSOCIATION_RETAIN_NONATOMIC" {
		t.Errorf("Macro.FlagPolicy = %q, want default", cfg.Macro.FlagPolicy)
	}
	if cfg.Output.Dir != "out" || !cfg.Output.InPlace {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Output.Suffix != DefaultSuffix {
		t.Errorf("Output.Suffix = %q, want default", cfg.Output.Suffix)
	}
	if cfg.IsRendererEnabled("report") {
		t.Error("report renderer should be disabled when output.report is false")
	}

	opts := cfg.MacroOptions()
	if opts.Attribute != "Assoc" || opts.DefaultPolicy != ".copy(.nonatomic)" {
		t.Errorf("MacroOptions = %+v", opts)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("repo: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	clone, err := cfg.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clone.Macro.DefaultPolicy = ".assign"
	clone.Ignore[0] = "changed/**"
	clone.Renderers = append(clone.Renderers, "extra")

	if cfg.Macro.DefaultPolicy != ".retain(.nonatomic)" {
		t.Errorf("original policy mutated: %q", cfg.Macro.DefaultPolicy)
	}
	if cfg.Ignore[0] != ".git/**" {
		t.Errorf("original ignore list mutated: %v", cfg.Ignore)
	}
	if len(cfg.Renderers) != 1 {
		t.Errorf("original renderers mutated: %v", cfg.Renderers)
	}
}
