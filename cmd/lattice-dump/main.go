// Command lattice-dump prints a script's compiled bytecode, runs it once
// on a fresh runtime, and prints the heap statistics left behind by that
// run. Adapted from the teacher's cmd/paserati-analyze (a standalone
// inspection tool fed by the engine's output rather than wired into the
// main CLI), but fed bytecode instead of test-run JSON.
package main

import (
	"flag"
	"fmt"
	"os"

	"lattice/pkg/bytecode"
	"lattice/pkg/runtime"
	"lattice/pkg/source"
)

func main() {
	gcFlag := flag.Bool("gc", false, "Run a GC pass before reporting heap stats")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: lattice-dump [-gc] <script>\n")
		os.Exit(64) // Exit code 64: command line usage error
	}

	filename := flag.Arg(0)
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file '%s': %s\n", filename, err.Error())
		os.Exit(70) // Exit code 70: internal software error
	}

	chunk, errs := runtime.CompileSource(source.NewSourceFile(filename, filename, string(sourceBytes)))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		os.Exit(70)
	}

	fmt.Println(bytecode.Disassemble(chunk))

	rt := runtime.New(runtime.DefaultConfig())
	if _, jsErr := rt.Execute(chunk); jsErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", jsErr.Kind, jsErr.Message)
		os.Exit(70)
	}

	if *gcFlag {
		rt.FullGC()
	}

	stats := rt.GCStats()
	fmt.Println()
	fmt.Println("gc stats:")
	fmt.Printf("  young objects:      %d\n", stats.YoungCount)
	fmt.Printf("  old objects:        %d\n", stats.OldCount)
	fmt.Printf("  bytes used:         %d\n", stats.BytesUsed)
	fmt.Printf("  minor collections:  %d\n", stats.YoungCollections)
	fmt.Printf("  major collections:  %d\n", stats.OldCollections)
	fmt.Printf("  promoted objects:   %d\n", stats.PromotedCount)
}
