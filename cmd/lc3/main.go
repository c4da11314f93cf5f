// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	stdio "io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

// options are the command line settings.
type options struct {
	path      string
	registers bool
	trace     bool
	count     bool
	assemble  bool
	save      string
	input     string
	output    string
	verbose   bool
	strict    bool
	lang      string
}

// parseArgs parses the command line. Flags may come before or after the
// image path.
func parseArgs(args []string) (opts options, err error) {
	flags := flag.NewFlagSet("lc3", flag.ContinueOnError)

	flags.BoolVar(&opts.registers, "r", false, "Print the registers after the run")
	flags.BoolVar(&opts.trace, "R", false, "Print the registers before each instruction and after the run")
	flags.BoolVar(&opts.count, "c", false, "Print the instruction count after the run")
	flags.BoolVar(&opts.assemble, "a", false, "Image file is assembly source")
	flags.StringVar(&opts.save, "s", "", "Save the image to a file, do not execute")
	flags.StringVar(&opts.input, "i", "-", "Console input")
	flags.StringVar(&opts.output, "o", "-", "Console output")
	flags.BoolVar(&opts.verbose, "v", false, "Verbose mode")
	flags.BoolVar(&opts.strict, "strict", false, "Enable strict opcode and image checks")
	flags.StringVar(&opts.lang, "lang", "", "Message language, as a BCP 47 tag")

	err = flags.Parse(args)
	if err != nil {
		return
	}

	if flags.NArg() == 0 {
		err = ErrNoFile
		return
	}

	opts.path = flags.Arg(0)
	err = flags.Parse(flags.Args()[1:])
	if err != nil {
		return
	}

	if flags.NArg() != 0 {
		err = ErrArguments(flags.Args())
		return
	}

	return
}

// load sets the emulator image from the image path.
func load(emu *emulator.Emulator, opts options) (err error) {
	if opts.assemble {
		inf, err := os.Open(opts.path)
		if err != nil {
			return &ErrPath{Path: opts.path, Err: err}
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: opts.verbose}
		err = emu.Assemble(asm, inf)
		if err != nil {
			return &ErrPath{Path: opts.path, Err: err}
		}
		return nil
	}

	err = emu.Rom.Open(opts.path)
	var open *io.ErrImageOpen
	if err != nil && !errors.As(err, &open) {
		err = &ErrPath{Path: opts.path, Err: err}
	}

	return
}

// interruptible restores the terminal and exits on an interrupt or
// termination signal. The returned function stops the handler.
func interruptible(terminal *io.Terminal) (stop func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signals:
			terminal.Close()
			log.Fatalf("%v", sig)
		case <-done:
		}
	}()

	stop = func() {
		signal.Stop(signals)
		close(done)
	}

	return
}

// run loads the image, then saves it or runs it on the console.
func run(opts options, stdin *os.File, stdout stdio.Writer) (err error) {
	if len(opts.lang) != 0 {
		translate.SetLanguage(opts.lang)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = opts.verbose
	emu.Trace = opts.trace
	emu.Cpu.Strict = opts.strict
	emu.Rom.Strict = opts.strict

	err = load(emu, opts)
	if err != nil {
		return
	}

	if len(opts.save) != 0 {
		ouf, err := os.Create(opts.save)
		if err != nil {
			return &ErrPath{Path: opts.save, Err: err}
		}
		err = emu.Rom.Marshal(ouf)
		if err == nil {
			err = ouf.Close()
		} else {
			ouf.Close()
		}
		if err != nil {
			return &ErrPath{Path: opts.save, Err: err}
		}
		return nil
	}

	if opts.input == "-" && opts.output == "-" && io.IsTerminal(stdin) {
		terminal := &io.Terminal{}
		err = terminal.Open(stdin, stdout)
		if err != nil {
			return
		}
		stop := interruptible(terminal)
		defer stop()
		emu.Cpu.Console = terminal
	} else {
		if opts.input == "-" {
			emu.Tape.Input = stdin
		} else {
			inf, err := os.Open(opts.input)
			if err != nil {
				return &ErrPath{Path: opts.input, Err: err}
			}
			defer inf.Close()
			emu.Tape.Input = inf
		}

		if opts.output == "-" {
			emu.Tape.Output = stdout
		} else {
			ouf, err := os.Create(opts.output)
			if err != nil {
				return &ErrPath{Path: opts.output, Err: err}
			}
			defer ouf.Close()
			emu.Tape.Output = ouf
		}
	}

	emu.Reset()
	err = emu.Run()

	if opts.verbose {
		log.Printf("cpu state:\n%v", emu.Cpu)
	}

	if opts.registers || opts.trace {
		translate.Fprintln(stdout, "Registers: %v", emu.Cpu.Registers())
	}

	if opts.count {
		// Not grouped, so the count stays machine readable.
		translate.Fprintln(stdout, "Total instructions executed: %v", strconv.FormatUint(emu.Ticks(), 10))
	}

	return
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	switch {
	case errors.Is(err, ErrNoFile):
		fmt.Print(err)
		os.Exit(1)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case err != nil:
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	err = run(opts, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
}
