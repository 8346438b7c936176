// Command num executes Universal Machine programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/nf/num/asm"
	"github.com/nf/num/host"
	"github.com/nf/num/um"
)

func main() {
	log.SetPrefix("num: ")
	log.SetFlags(0)

	var (
		devFlag   = flag.Bool("dev", false, "enable developer mode (live re-assemble and run a program)")
		debugFlag = flag.Bool("debug", false, "enable debugger (implies -dev)")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <program.um | program.uasm>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s <-dev | -debug> <program.uasm>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	if *devFlag || *debugFlag {
		if err := devMode(*debugFlag, flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	code, err := run(flag.Arg(0))

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func run(file string) (int, error) {
	prog, _, err := loadFile(file)
	if err != nil {
		return 0, err
	}
	r := host.NewRunner(false, nil)
	return r.Run(prog), nil
}

// loadFile reads a program image, assembling it first if file names an
// assembly source.
func loadFile(file string) ([]um.Word, symbols, error) {
	if filepath.Ext(file) == ".uasm" {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, err
		}
		prog, syms, err := asm.Assemble(string(src))
		if err != nil {
			return nil, nil, err
		}
		return prog, symbols(syms), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	prog, err := um.ReadProgram(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", file, err)
	}
	return prog, nil, nil
}
