package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "A '.vm' file or a directory containing one or more '.vm' files")).
	WithOption(cli.NewOption("n", "Disable bootstrap code in the final .asm file").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("y", "Include bootstrap code in the final .asm file (default)").WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Missing required 'input' argument, use --help\n")
		return -1
	}

	_, noBootstrap := options["n"]
	bootstrap := !noBootstrap

	info, err := os.Stat(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to stat input path: %s\n", err)
		return -1
	}

	var inputs []string
	var outputPath string

	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(args[0], "*.vm"))
		if err != nil || len(matches) == 0 {
			fmt.Printf("ERROR: No '.vm' files found under '%s'\n", args[0])
			return -1
		}
		sort.Strings(matches)
		inputs = matches
		outputPath = filepath.Join(args[0], filepath.Base(args[0])+".asm")
	} else {
		if filepath.Ext(args[0]) != ".vm" {
			fmt.Printf("ERROR: Expected a '.vm' input file, got '%s'\n", args[0])
			return -1
		}
		inputs = []string{args[0]}
		outputPath = strings.TrimSuffix(args[0], ".vm") + ".asm"
	}

	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation units
	// (the .vm files) that will be parsed and lowered together and then sent
	// to the codegen phase (that will create a monolithic compiled output).
	program := vm.Program{}

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
		program[strings.TrimSuffix(filepath.Base(input), ".vm")] = module
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lowerer()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// When the user opts in to include the 'bootstrap' code as the first instructions of our
	// translated program (the default), it sets SP = 256 and calls Sys.init through the
	// same 'call' expansion every other call site goes through.
	if bootstrap {
		asmProgram, err = lowerer.Bootstrap(asmProgram)
		if err != nil {
			fmt.Printf("ERROR: Unable to generate bootstrap sequence: %s\n", err)
			return -1
		}
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
