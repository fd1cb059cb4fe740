package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Compiles a small, self-contained Jack class through the real 'Handler' (exercising the
// actual file I/O path, not just the in-memory lowering/codegen passes) and checks the
// produced '.vm' file against a known-good expected VM text. No external course-material
// tree and no 'git diff' subprocess: the expected text is the same scenario already proven
// correct in 'pkg/jack/lowering_test.go', driven here end to end through the CLI plumbing.
func TestHandlerCompilesClassToVM(t *testing.T) {
	dir := t.TempDir()
	source := `class Main {
		function void main() {
			do Output.printInt(1 + 2);
			return;
		}
	}`

	input := filepath.Join(dir, "Main.jack")
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	status := Handler([]string{input}, map[string]string{"stdlib": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	generated, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("failed to read generated output: %v", err)
	}

	want := []string{
		"function Main.main 0",
		"push constant 1",
		"push constant 2",
		"add",
		"call Output.printInt 1",
		"pop temp 0",
		"push constant 0",
		"return",
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

// Compiling a directory with no '.jack' files inside must fail fast rather than silently
// produce an empty program, matching 'Handler's own "No '.jack' files found" check.
func TestHandlerFailsOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	status := Handler([]string{dir}, nil)
	if status == 0 {
		t.Fatalf("expected non-zero exit status for a directory with no '.jack' files")
	}
}
