package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Translates a small, self-contained '.vm' program (no function calls, so the bootstrap
// expansion stays out of scope) through the real 'Handler' with bootstrap disabled via
// '-n', and checks the produced '.asm' against the exact instruction sequence the lowering
// rules in 'pkg/vm/lowering.go' produce for 'push constant'/'add'. No external
// course-material tree and no CPUEmulator.sh subprocess.
func TestHandlerTranslatesToAsm(t *testing.T) {
	dir := t.TempDir()
	source := "push constant 7\npush constant 8\nadd\n"

	input := filepath.Join(dir, "SimpleAdd.vm")
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	status := Handler([]string{input}, map[string]string{"n": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	generated, err := os.ReadFile(filepath.Join(dir, "SimpleAdd.asm"))
	if err != nil {
		t.Fatalf("failed to read generated output: %v", err)
	}

	want := []string{
		"@7", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1", // push constant 7
		"@8", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1", // push constant 8
		"@SP", "M=M-1", "A=M", "D=M", "@SP", "A=M-1", "M=D+M", // add
	}

	got := strings.Split(strings.TrimRight(string(generated), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d\n--- got ---\n%s\n--- want ---\n%s",
			len(want), len(got), strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d: expected %q got %q", i, want[i], got[i])
		}
	}
}

// With bootstrap left at its default (enabled), the first four instructions must set
// SP = 256 before anything else runs, matching 'spec.md's own bootstrap scenario.
func TestHandlerDefaultsToBootstrapEnabled(t *testing.T) {
	dir := t.TempDir()
	source := "push constant 1\n"

	input := filepath.Join(dir, "Boot.vm")
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	status := Handler([]string{input}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	generated, err := os.ReadFile(filepath.Join(dir, "Boot.asm"))
	if err != nil {
		t.Fatalf("failed to read generated output: %v", err)
	}

	want := []string{"@256", "D=A", "@SP", "M=D"}
	got := strings.Split(strings.TrimRight(string(generated), "\n"), "\n")
	if len(got) < len(want) {
		t.Fatalf("expected at least %d bootstrap instructions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bootstrap instruction %d: expected %q got %q", i, want[i], got[i])
		}
	}
}
