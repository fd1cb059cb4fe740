package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"its-hmny.dev/nand2tetris/pkg/jack"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Analyzer parses programs (composed of multiple classes/files) written in the
Jack language and emits an XML parse tree for each one, it's meant as a debugging aid
for the Compiler and does not perform any lowering or code generation.
`, "\n", " ")

var JackAnalyzer = cli.New(Description).
	WithArg(cli.NewArg("input", "A '.jack' file or a directory containing one or more '.jack' files")).
	WithOption(cli.NewOption("t", "Emits the token stream only, skipping the parse tree").WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Missing required 'input' argument, use --help\n")
		return -1
	}

	_, tokensOnly := options["t"]

	TUs := []string{}

	filepath.Walk(args[0], func(walked string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(walked) != ".jack" {
			return nil
		}

		TUs = append(TUs, walked)
		return nil
	})

	if len(TUs) == 0 {
		fmt.Printf("ERROR: No '.jack' files found under '%s'\n", args[0])
		return -1
	}

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		analyzer := jack.NewAnalyzer(bytes.NewReader(content))

		var xml string
		var suffix string

		if tokensOnly {
			xml, err = analyzer.AnalyzeTokens()
			suffix = "T.xml"
		} else {
			xml, err = analyzer.Analyze()
			suffix = ".xml"
		}

		if err != nil {
			fmt.Printf("ERROR: Unable to analyze '%s': %s\n", tu, err)
			return -1
		}

		extension := path.Ext(tu)
		output, err := os.Create(fmt.Sprintf("%s%s", strings.TrimSuffix(tu, extension), suffix))
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer output.Close()

		output.WriteString(xml)
	}

	return 0
}

func main() { os.Exit(JackAnalyzer.Run(os.Args, os.Stdout)) }
