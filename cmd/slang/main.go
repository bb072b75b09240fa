// Command slang is the thin, non-core driver spec.md §6.2 describes:
// it loads a program (from -p or a positional file), evaluates it, and
// reports the result or any errors. It owns no language semantics of
// its own — everything it calls is exported from package slang.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ethanwiebe/slanggo"
)

func main() {
	var (
		prog       = flag.String("p", "", "Program text to evaluate directly")
		configPath = flag.String("config", "", "Path to a slang.yaml config file")
		disasm     = flag.Bool("g", false, "Print disassembled bytecode instead of running")
	)
	flag.Parse()

	cfg := slang.NewConfig()
	if *configPath != "" {
		loaded, err := slang.LoadConfigFile(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	vm := slang.NewVM(cfg)

	var name, src string
	switch {
	case *prog != "":
		name, src = "-p", *prog
	case flag.NArg() == 1:
		name = flag.Arg(0)
		data, err := os.ReadFile(name)
		if err != nil {
			log.Fatalf("reading %s: %v", name, err)
		}
		src = string(data)
	default:
		log.Fatal("usage: slang [-g] [-config FILE] (-p PROG | FILE)")
	}

	mod, err := vm.LoadModule(name, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *disasm {
		for i, fn := range mod.Program().Funcs {
			fname := fn.Name
			if fname == "" {
				fname = fmt.Sprintf("lambda-%d", i)
			}
			fmt.Print(slang.Disassemble(fname, fn))
		}
		return
	}

	result, err := vm.Eval(mod)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(vm.Display(result))
}
