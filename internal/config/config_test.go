package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/coursenobi/internal/course"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected empty path for defaults, got %q", cfg.Path)
	}
	if cfg.Scheduling.MaxCoursesPerQuarter != 4 || cfg.Scheduling.MaxCombinations != 100000 {
		t.Fatalf("unexpected scheduling defaults: %+v", cfg.Scheduling)
	}
	if cfg.Logging.Format != "console" || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Logging, cfg.Server)
	}
	if got := cfg.DepartmentTable().NormalizeID("ics 31"); got != course.ID("I&C SCI 31") {
		t.Fatalf("expected default remap to apply, got %q", got)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
scheduling:
  max_courses_per_quarter: 3
departments:
  remap:
    EECS: EECS-NEW
  retired: [" OLDDEPT "]
logging:
  level: DEBUG
  format: json
  file: logs/run.log
catalog: data/catalog.json
`)
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Scheduling.MaxCoursesPerQuarter != 3 {
		t.Fatalf("expected capacity 3, got %d", cfg.Scheduling.MaxCoursesPerQuarter)
	}
	if cfg.Scheduling.MaxCombinations != 100000 {
		t.Fatalf("expected default ceiling, got %d", cfg.Scheduling.MaxCombinations)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level to be lowercased, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.File != filepath.Join(dir, "logs", "run.log") {
		t.Fatalf("expected log file resolved against config dir, got %s", cfg.Logging.File)
	}
	if cfg.Catalog != filepath.Join(dir, "data", "catalog.json") {
		t.Fatalf("expected catalog resolved against config dir, got %s", cfg.Catalog)
	}
	depts := cfg.DepartmentTable()
	if !depts.Accepts("OLDDEPT") {
		t.Fatalf("expected retired department to be accepted")
	}
	if got := depts.Canonical("eecs"); got != "EECS-NEW" {
		t.Fatalf("expected remap to EECS-NEW, got %q", got)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"capacity": "scheduling:\n  max_courses_per_quarter: -1\n",
		"format":   "logging:\n  format: xml\n",
		"level":    "logging:\n  level: loud\n",
		"remap":    "departments:\n  remap:\n    ICS: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("COURSENOBI_MAX_COURSES_PER_QUARTER", "2")
	t.Setenv("COURSENOBI_LOG_FORMAT", "json")
	t.Setenv("COURSENOBI_ADDR", "127.0.0.1:9000")
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Scheduling.MaxCoursesPerQuarter != 2 {
		t.Fatalf("expected env capacity 2, got %d", cfg.Scheduling.MaxCoursesPerQuarter)
	}
	if cfg.Logging.Format != "json" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Logging, cfg.Server)
	}

	t.Setenv("COURSENOBI_MAX_COMBINATIONS", "many")
	if _, err := Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Fatalf("expected error for a non-numeric override")
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault returned error: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected WriteDefault to refuse an existing file")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Path != path {
		t.Fatalf("expected path %s, got %s", path, cfg.Path)
	}
	if cfg.Departments.Remap["ICS"] != "I&C SCI" {
		t.Fatalf("expected scaffolded remap, got %v", cfg.Departments.Remap)
	}

	if err := cfg.AddRemap("STATS=STATISTICS"); err != nil {
		t.Fatalf("AddRemap returned error: %v", err)
	}
	if err := cfg.AddRemap("broken"); err == nil {
		t.Fatalf("expected AddRemap to reject an entry without '='")
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save returned error: %v", err)
	}
	if again.Departments.Remap["STATS"] != "STATISTICS" {
		t.Fatalf("expected saved remap, got %v", again.Departments.Remap)
	}
}

func TestResolvePrefersExplicitPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/coursenobi.yaml")
	if got := Resolve("  local.yaml "); got != "local.yaml" {
		t.Fatalf("expected explicit path, got %q", got)
	}
	if got := Resolve(""); got != "/etc/coursenobi.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
	t.Setenv(EnvConfigPath, "")
	if got := Resolve(""); got != FileName {
		t.Fatalf("expected %s, got %q", FileName, got)
	}
}
