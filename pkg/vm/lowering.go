package vm

import (
	"fmt"
	"sort"

	"its-hmny.dev/nand2tetris/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one Module per source file) and produces its
// 'asm.Program' counterpart, realizing the stack discipline, segment addressing,
// comparisons and function calling convention on top of the Hack assembly language.
//
// Modules are lowered in lexicographic filename order so that a multi-file translation
// always produces the same assembly regardless of the order the caller loaded the files in.
type Lowerer struct {
	program    Program // The set of modules (one per source file) to lower
	nCompare   uint    // Monotonic counter to keep 'eq/gt/lt' comparison labels unique
	nCall      uint    // Monotonic counter to keep 'call' return address labels unique
	currentFun string  // Fully qualified name of the function currently being lowered, for label scoping
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process, returns the concatenation (in lexicographic file order)
// of every module's lowered instructions.
func (l *Lowerer) Lowerer() (asm.Program, error) {
	if len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	filenames := make([]string, 0, len(l.program))
	for filename := range l.program {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	program := asm.Program{}
	for _, filename := range filenames {
		lowered, err := l.LowerModule(filename, l.program[filename])
		if err != nil {
			return nil, err
		}
		program = append(program, lowered...)
	}

	return program, nil
}

// Prepends the bootstrap sequence (SP = 256; call Sys.init 0) to an already lowered program.
// Meant to be called by the CLI entrypoint once the whole multi-file program has been lowered,
// so that the bootstrap itself goes through the same 'call' expansion as any other call site.
func (l *Lowerer) Bootstrap(program asm.Program) (asm.Program, error) {
	prelude := asm.Program{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}

	call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append(prelude, append(call, program...)...), nil
}

// Lowers a single module (translation unit), instruction by instruction, in source order.
func (l *Lowerer) LowerModule(filename string, module Module) (asm.Program, error) {
	l.currentFun = ""
	program := asm.Program{}

	for _, operation := range module {
		var lowered asm.Program
		var err error

		switch tOperation := operation.(type) {
		case MemoryOp:
			lowered, err = l.HandleMemoryOp(filename, tOperation)
		case ArithmeticOp:
			lowered, err = l.HandleArithmeticOp(tOperation)
		case LabelDecl:
			lowered, err = l.HandleLabelDecl(tOperation)
		case GotoOp:
			lowered, err = l.HandleGotoOp(tOperation)
		case FuncDecl:
			lowered, err = l.HandleFuncDecl(tOperation)
		case FuncCallOp:
			lowered, err = l.HandleFuncCallOp(tOperation)
		case ReturnOp:
			lowered, err = l.HandleReturnOp(tOperation)
		default:
			err = fmt.Errorf("unrecognized operation '%T'", operation)
		}

		if err != nil {
			return nil, err
		}
		program = append(program, lowered...)
	}

	return program, nil
}

// Scopes a bare label to the function currently being lowered, matching the rule: emitted
// form is 'functionName$label'; if no function is in scope the bare label is used as-is.
func (l *Lowerer) scopeLabel(label string) string {
	if l.currentFun == "" {
		return label
	}
	return fmt.Sprintf("%s$%s", l.currentFun, label)
}

// Lowers 'push'/'pop' onto the concrete address resolution rules of each segment.
func (l *Lowerer) HandleMemoryOp(filename string, op MemoryOp) (asm.Program, error) {
	if op.Operation == Push {
		return l.lowerPush(filename, op)
	}
	return l.lowerPop(filename, op)
}

func (l *Lowerer) lowerPush(filename string, op MemoryOp) (asm.Program, error) {
	var loadD asm.Program

	switch op.Segment {
	case Constant:
		loadD = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Comp: "A", Dest: "D"},
		}

	case Local, Argument, This, That:
		loadD = append(l.loadIndirect(op.Segment, op.Offset), asm.CInstruction{Comp: "M", Dest: "D"})

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		loadD = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		loadD = asm.Program{
			asm.AInstruction{Location: l.pointerRegister(op.Offset)},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}

	case Static:
		loadD = asm.Program{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", filename, op.Offset)},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}

	return append(loadD, l.pushD()...), nil
}

func (l *Lowerer) lowerPop(filename string, op MemoryOp) (asm.Program, error) {
	switch op.Segment {
	case Local, Argument, This, That:
		// Stores the target address in R13 before the pop, so popping D doesn't clobber it.
		setup := append(l.loadIndirect(op.Segment, op.Offset),
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Comp: "D", Dest: "M"},
		)
		restore := asm.Program{
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Comp: "M", Dest: "A"},
			asm.CInstruction{Comp: "D", Dest: "M"},
		}
		return append(setup, append(l.popD(), restore...)...), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return append(l.popD(), asm.Program{
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Comp: "D", Dest: "M"},
		}...), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		return append(l.popD(), asm.Program{
			asm.AInstruction{Location: l.pointerRegister(op.Offset)},
			asm.CInstruction{Comp: "D", Dest: "M"},
		}...), nil

	case Static:
		return append(l.popD(), asm.Program{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", filename, op.Offset)},
			asm.CInstruction{Comp: "D", Dest: "M"},
		}...), nil

	default:
		return nil, fmt.Errorf("unrecognized segment '%s' (or invalid for 'pop')", op.Segment)
	}
}

// Loads into A the effective address 'base + offset' for local/argument/this/that, without
// touching D. The caller decides whether to read from or write to that address next.
func (l *Lowerer) loadIndirect(segment SegmentType, offset uint16) asm.Program {
	base := map[SegmentType]string{Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT"}[segment]

	return asm.Program{
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: base},
		asm.CInstruction{Comp: "D+M", Dest: "A"},
	}
}

func (l *Lowerer) pointerRegister(offset uint16) string {
	if offset == 0 {
		return "THIS"
	}
	return "THAT"
}

// Pushes the value currently held in D onto the top of the stack and advances SP.
func (l *Lowerer) pushD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// Decrements SP and loads the value popped off the top of the stack into D.
func (l *Lowerer) popD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "M"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
	}
}

// Lowers 'add, sub, and, or, neg, not, eq, gt, lt'. The binary operators pop two operands and
// replace the top with the result; the unary ones operate in place on the current top.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	switch op.Operation {
	case Add:
		return l.binary("D+M"), nil
	case Sub:
		return l.binary("M-D"), nil
	case And:
		return l.binary("D&M"), nil
	case Or:
		return l.binary("D|M"), nil
	case Neg:
		return l.unary("-M"), nil
	case Not:
		return l.unary("!M"), nil
	case Eq:
		return l.compare("JEQ"), nil
	case Gt:
		return l.compare("JGT"), nil
	case Lt:
		return l.compare("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// Pops the top value into D, addresses the second-from-top (the new top of stack) with A, computes
// 'comp' (where D is the popped top operand and M the second one) and stores the result there in
// place. The single SP decrement done by 'popD' already accounts for the net pop.
func (l *Lowerer) binary(comp string) asm.Program {
	return append(l.popD(), asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	}...)
}

// Operates in place on the current top of stack, leaving SP untouched.
func (l *Lowerer) unary(comp string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	}
}

// Computes 'x - y' on the top two values, branches on the sign of the result and pushes back
// −1 (true) or 0 (false). Each call gets a fresh label pair so that comparisons never collide,
// even across repeated occurrences of the same operator within the same function.
func (l *Lowerer) compare(jump string) asm.Program {
	trueLabel := l.scopeLabel(fmt.Sprintf("COMPARE_TRUE_%d", l.nCompare))
	endLabel := l.scopeLabel(fmt.Sprintf("COMPARE_END_%d", l.nCompare))
	l.nCompare++

	return append(l.popD(), asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "0", Dest: "M"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "-1", Dest: "M"},
		asm.LabelDecl{Name: endLabel},
	}...)
}

// Declares a label scoped to the function currently being lowered.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) (asm.Program, error) {
	return asm.Program{asm.LabelDecl{Name: l.scopeLabel(op.Name)}}, nil
}

// Lowers 'goto'/'if-goto'. A conditional jump pops the top of stack and branches if it's non-zero.
func (l *Lowerer) HandleGotoOp(op GotoOp) (asm.Program, error) {
	target := l.scopeLabel(op.Label)

	if op.Jump == Unconditional {
		return asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	return append(l.popD(), asm.Program{
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	}...), nil
}

// Lowers a function declaration: emits its (unscoped, it's the scope root) label and zero
// initializes 'NLocal' local variables, then records it as the current function for label scoping.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) (asm.Program, error) {
	l.currentFun = op.Name

	program := asm.Program{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		program = append(program, asm.AInstruction{Location: "0"}, asm.CInstruction{Comp: "A", Dest: "D"})
		program = append(program, l.pushD()...)
	}

	return program, nil
}

// Lowers a function call: push the return address and the caller's LCL/ARG/THIS/THAT,
// reposition ARG and LCL for the callee's frame, jump to the callee, and place the fresh
// return label right after.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) (asm.Program, error) {
	retLabel := fmt.Sprintf("RETURN_%d", l.nCall)
	l.nCall++

	program := asm.Program{
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Comp: "A", Dest: "D"},
	}
	program = append(program, l.pushD()...)

	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Comp: "M", Dest: "D"},
		)
		program = append(program, l.pushD()...)
	}

	// ARG = SP - n - 5 (n pushed args plus the 5 frame slots just saved)
	program = append(program,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(int(op.NArgs) + 5)},
		asm.CInstruction{Comp: "D-A", Dest: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// goto F
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// (RETURN_k)
		asm.LabelDecl{Name: retLabel},
	)

	return program, nil
}

// Lowers 'return': saves FRAME (LCL) and RET ((FRAME-5)) before the caller's frame gets
// overwritten by the repositioned return value, then restores THAT, THIS, ARG and LCL from
// the frame and jumps back to RET.
func (l *Lowerer) HandleReturnOp(op ReturnOp) (asm.Program, error) {
	program := asm.Program{
		// R13 (FRAME) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// R14 (RET) = *(FRAME - 5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Comp: "D-A", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}

	// *ARG = pop()
	program = append(program, l.popD()...)
	program = append(program,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M+1", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	)

	for i, reg := range []string{"THAT", "THIS", "ARG", "LCL"} {
		program = append(program,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.AInstruction{Location: fmt.Sprint(i + 1)},
			asm.CInstruction{Comp: "D-A", Dest: "A"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.AInstruction{Location: reg},
			asm.CInstruction{Comp: "D", Dest: "M"},
		)
	}

	// goto RET
	program = append(program,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return program, nil
}
