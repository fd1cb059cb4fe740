package asm_test

import (
	"strings"
	"testing"

	"its-hmny.dev/nand2tetris/pkg/asm"
)

func TestParse(t *testing.T) {
	source := strings.Join([]string{
		"// sums 2 and 3, stores the result in RAM[0]",
		"@2",
		"D=A",
		"@3",
		"D=D+A",
		"(END)",
		"@0",
		"M=D",
		"@END",
		"D;JEQ",
		"",
	}, "\n")

	parser := asm.NewParser(strings.NewReader(source))
	program, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	// The comment line produces no node, everything else does.
	if len(program) != 9 {
		t.Fatalf("expected 9 parsed instructions, got %d", len(program))
	}

	if inst, ok := program[0].(asm.AInstruction); !ok || inst.Location != "2" {
		t.Fail()
	}
	if inst, ok := program[1].(asm.CInstruction); !ok || inst.Dest != "D" || inst.Comp != "A" {
		t.Fail()
	}
	if decl, ok := program[4].(asm.LabelDecl); !ok || decl.Name != "END" {
		t.Fail()
	}
	if inst, ok := program[8].(asm.CInstruction); !ok || inst.Comp != "D" || inst.Jump != "JEQ" {
		t.Fail()
	}
}
