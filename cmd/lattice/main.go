package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"lattice/pkg/bytecode"
	"lattice/pkg/errors"
	"lattice/pkg/runtime"
	"lattice/pkg/source"
)

func main() {
	exprFlag := flag.String("e", "", "Run the given expression and exit")
	bytecodeFlag := flag.Bool("bytecode", false, "Show compiled bytecode before execution")
	gcStatsFlag := flag.Bool("gc-stats", false, "Show GC stats after execution")

	flag.Parse()

	if *exprFlag != "" {
		runSource(runtime.New(runtime.DefaultConfig()), source.NewEvalSource(*exprFlag), *bytecodeFlag, *gcStatsFlag)
		return
	}

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: lattice [script] or lattice -e \"expression\"\n")
		os.Exit(64) // Exit code 64: command line usage error
	} else if flag.NArg() == 1 {
		runFile(flag.Arg(0), *bytecodeFlag, *gcStatsFlag)
	} else {
		runRepl(*bytecodeFlag, *gcStatsFlag)
	}
}

// runSource compiles and runs one chunk of source against rt, printing the
// result or error the way the teacher's driver.DisplayResult reports a
// RunCode outcome: value on success, formatted error on failure.
func runSource(rt *runtime.Runtime, sf *source.SourceFile, showBytecode bool, showGCStats bool) bool {
	chunk, errs := runtime.CompileSource(sf)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return false
	}

	if showBytecode {
		fmt.Fprintln(os.Stderr, bytecode.Disassemble(chunk))
	}

	result, jsErr := rt.Execute(chunk)
	if jsErr != nil {
		printJsError(jsErr)
		return false
	}

	if !result.IsUndefined() {
		fmt.Println(result.Inspect())
	}

	if showGCStats {
		stats := rt.GCStats()
		fmt.Fprintf(os.Stderr, "gc: young=%d old=%d bytes=%d minor_collections=%d major_collections=%d promoted=%d\n",
			stats.YoungCount, stats.OldCount, stats.BytesUsed, stats.YoungCollections, stats.OldCollections, stats.PromotedCount)
	}

	return true
}

func printJsError(e *errors.JsError) {
	if e.SourcePosition != nil {
		fmt.Fprintf(os.Stderr, "%s: %s (at %d:%d)\n", e.Kind, e.Message, e.SourcePosition.Line, e.SourcePosition.Column)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s\n", e.Kind, e.Message)
	}
	for _, frame := range e.Stack {
		fmt.Fprintf(os.Stderr, "    at %s (%s:%d:%d)\n", frame.FunctionName, frame.FileName, frame.Line, frame.Column)
	}
}

func runFile(filename string, showBytecode bool, showGCStats bool) {
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file '%s': %s\n", filename, err.Error())
		os.Exit(70) // Exit code 70: internal software error
	}

	rt := runtime.New(runtime.DefaultConfig())
	ok := runSource(rt, source.NewSourceFile(filename, filename, string(sourceBytes)), showBytecode, showGCStats)
	if !ok {
		os.Exit(70)
	}
}

// runRepl starts the Read-Eval-Print Loop against one persistent Runtime,
// so declarations and globals from earlier lines stay visible to later ones.
func runRepl(showBytecode bool, showGCStats bool) {
	reader := bufio.NewReader(os.Stdin)
	rt := runtime.New(runtime.DefaultConfig())

	fmt.Println("lattice (Ctrl+D to exit)")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			break
		}

		if line == "\n" {
			continue
		}

		runSource(rt, source.NewReplSource(line), showBytecode, showGCStats)
	}
}
