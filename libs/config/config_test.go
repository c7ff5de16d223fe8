package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStringFallsBackWhenUnset(t *testing.T) {
	t.Setenv("SCHED_TEST_STRING", "")
	if got := String("SCHED_TEST_STRING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("SCHED_TEST_STRING", "  value ")
	if got := String("SCHED_TEST_STRING", "fallback"); got != "value" {
		t.Fatalf("expected trimmed env value, got %q", got)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("SCHED_TEST_REQUIRED", "")
	if _, err := RequiredString("SCHED_TEST_REQUIRED"); err == nil {
		t.Fatal("expected error for missing key")
	}
	t.Setenv("SCHED_TEST_REQUIRED", "postgres://x")
	got, err := RequiredString("SCHED_TEST_REQUIRED")
	if err != nil || got != "postgres://x" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestPortValidation(t *testing.T) {
	t.Setenv("SCHED_TEST_PORT", "70000")
	if _, err := Port("SCHED_TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
	t.Setenv("SCHED_TEST_PORT", "")
	p, err := Port("SCHED_TEST_PORT", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("expected fallback port, got %q, %v", p, err)
	}
}

func TestIntBoolList(t *testing.T) {
	t.Setenv("SCHED_TEST_INT", "-3")
	if got := Int("SCHED_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback for negative int, got %d", got)
	}
	t.Setenv("SCHED_TEST_INT", "12")
	if got := Int("SCHED_TEST_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}

	t.Setenv("SCHED_TEST_BOOL", "off")
	if Bool("SCHED_TEST_BOOL", true) {
		t.Fatal("expected false")
	}
	t.Setenv("SCHED_TEST_BOOL", "maybe")
	if !Bool("SCHED_TEST_BOOL", true) {
		t.Fatal("expected fallback true for unparseable value")
	}

	t.Setenv("SCHED_TEST_LIST", "a, ,b,")
	got := List("SCHED_TEST_LIST", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduling.env")
	if err := os.WriteFile(path, []byte("SCHED_FILE_ONLY=from-file\nSCHED_FILE_BOTH=from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCHED_FILE_BOTH", "from-env")

	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := String("SCHED_FILE_ONLY", ""); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
	if got := String("SCHED_FILE_BOTH", ""); got != "from-env" {
		t.Fatalf("expected env override, got %q", got)
	}
}
