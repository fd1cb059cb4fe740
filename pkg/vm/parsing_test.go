package vm_test

import (
	"strings"
	"testing"

	"its-hmny.dev/nand2tetris/pkg/vm"
)

func TestParse(t *testing.T) {
	source := strings.Join([]string{
		"// adds constants 7 and 8",
		"push constant 7",
		"push constant 8",
		"add",
		"label END",
		"if-goto END",
		"function Main.main 0",
		"call Main.run 0",
		"return",
		"",
	}, "\n")

	parser := vm.NewParser(strings.NewReader(source))
	module, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(module) != 8 {
		t.Fatalf("expected 8 parsed operations, got %d", len(module))
	}

	if op, ok := module[0].(vm.MemoryOp); !ok || op.Operation != vm.Push || op.Segment != vm.Constant || op.Offset != 7 {
		t.Fail()
	}
	if op, ok := module[2].(vm.ArithmeticOp); !ok || op.Operation != vm.Add {
		t.Fail()
	}
	if op, ok := module[3].(vm.LabelDecl); !ok || op.Name != "END" {
		t.Fail()
	}
	if op, ok := module[4].(vm.GotoOp); !ok || op.Jump != vm.Conditional || op.Label != "END" {
		t.Fail()
	}
	if op, ok := module[5].(vm.FuncDecl); !ok || op.Name != "Main.main" || op.NLocal != 0 {
		t.Fail()
	}
	if op, ok := module[6].(vm.FuncCallOp); !ok || op.Name != "Main.run" || op.NArgs != 0 {
		t.Fail()
	}
	if _, ok := module[7].(vm.ReturnOp); !ok {
		t.Fail()
	}
}
