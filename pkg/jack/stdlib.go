package jack

import "its-hmny.dev/nand2tetris/pkg/utils"

// ----------------------------------------------------------------------------
// Standard Library ABI

// Runtime/OS library routines (Math, String, Array, Output, Screen, Keyboard, Memory, Sys) are
// referenced by name only, their implementation is explicitly out of scope. Still, the Lowerer
// needs to know the shape (subroutine type, so it can tell a function from a constructor) of
// each one it's asked to resolve a call against, so we declare here just enough of an ABI to
// satisfy that lookup; no statement or expression bodies are attached to any of them.
var StandardLibraryABI = map[string]Class{
	"Math": abiClass("Math", Function, "abs", "max", "min", "multiply", "divide", "sqrt"),

	"String": abiClassWith("String", map[string]SubroutineType{
		"new": Constructor, "dispose": Method, "length": Method, "charAt": Method,
		"setCharAt": Method, "appendChar": Method, "eraseLastChar": Method, "intValue": Method,
		"setInt": Method, "newLine": Function, "backSpace": Function, "doubleQuote": Function,
	}),

	"Array": abiClassWith("Array", map[string]SubroutineType{"new": Function, "dispose": Method}),

	"Output": abiClass("Output", Function,
		"moveCursor", "printChar", "printString", "printInt", "println", "backSpace"),

	"Screen": abiClass("Screen", Function,
		"clearScreen", "setColor", "drawPixel", "drawLine", "drawRectangle", "drawCircle"),

	"Keyboard": abiClass("Keyboard", Function, "keyPressed", "readChar", "readLine", "readInt"),

	"Memory": abiClassWith("Memory", map[string]SubroutineType{
		"peek": Function, "poke": Function, "alloc": Function, "deAlloc": Method,
	}),

	"Sys": abiClass("Sys", Function, "halt", "error", "wait", "init"),
}

// Builds a stdlib 'Class' where every listed subroutine shares the same 'SubroutineType'.
func abiClass(name string, kind SubroutineType, subroutines ...string) Class {
	kinds := map[string]SubroutineType{}
	for _, subName := range subroutines {
		kinds[subName] = kind
	}
	return abiClassWith(name, kinds)
}

// Builds a stdlib 'Class' from an explicit per-subroutine kind map, used when a single class
// mixes functions and methods (plus, in 'String', a constructor).
func abiClassWith(name string, kinds map[string]SubroutineType) Class {
	subroutines := utils.NewOrderedMap[string, Subroutine]()
	for subName, kind := range kinds {
		subroutines.Set(subName, Subroutine{Name: subName, Type: kind})
	}
	return Class{Name: name, Fields: utils.NewOrderedMap[string, Variable](), Subroutines: subroutines}
}
