// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bytes"
	"context"
	"debug/elf"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/ezrec/rvhart/emulator"
	"github.com/ezrec/rvhart/gdb"
	"github.com/ezrec/rvhart/internal/player"
	"github.com/ezrec/rvhart/translate"
)

// load reads the image or assembles the source named by opts.
func load(emu *emulator.Emulator, opts *Options) (err error) {
	if len(opts.Source) != 0 {
		inf, err := os.Open(opts.Source)
		if err != nil {
			return err
		}
		defer inf.Close()

		return emu.Assemble(inf)
	}

	data, err := os.ReadFile(opts.Image)
	if err != nil {
		return
	}

	if bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		return emu.LoadElf(bytes.NewReader(data))
	}

	return emu.LoadBinary(data)
}

func run() int {
	var cli Options
	var profile string

	flag.StringVar(&cli.Image, "i", "", "ELF or raw binary image to run")
	flag.StringVar(&cli.Source, "c", "", "assembly source to run")
	flag.StringVar(&profile, "p", "", "YAML run profile")
	flag.StringVar(&cli.Gdb, "g", "", "serve gdb on this address instead of running")
	flag.BoolVar(&cli.Audio, "a", false, "play the audio device")
	flag.BoolVar(&cli.Terminal, "t", false, "raw terminal input, Ctrl-] to quit")
	flag.IntVar(&cli.Steps, "n", 0, "maximum steps, zero for no limit")
	flag.BoolVar(&cli.Report, "x", false, "report UART test results")
	flag.BoolVar(&cli.Verbose, "v", false, "Verbose mode")
	flag.StringVar(&cli.Locale, "l", "", "message locale")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Printf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
		return 2
	}

	opts := &Options{}
	if len(profile) != 0 {
		var err error
		opts, err = LoadProfile(profile)
		if err != nil {
			log.Printf("%v: %v", profile, err)
			return 2
		}
	}

	var set []string
	flag.Visit(func(fl *flag.Flag) { set = append(set, fl.Name) })
	opts.Override(&cli, set)

	if len(opts.Locale) != 0 {
		translate.Use(opts.Locale)
	}

	err := opts.Validate()
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
		return 2
	}

	emu := emulator.NewEmulator()
	emu.Verbose = opts.Verbose

	err = load(emu, opts)
	if err != nil {
		log.Printf("%v%v: %v", opts.Image, opts.Source, err)
		return 1
	}

	if opts.Audio {
		p, err := player.New(emu.Audio)
		if err != nil {
			log.Printf("audio: %v", err)
		} else {
			p.Play()
			defer p.Close()
		}
	}

	tty, err := OpenTerminal(opts.Terminal)
	if err != nil {
		log.Printf("terminal: %v", err)
		return 1
	}
	defer tty.Close()

	host := &Host{
		Emulator: emu,
		Input:    tty.Input,
		Output:   os.Stdout,
		Stop:     &atomic.Bool{},
		Steps:    opts.Steps,
		Report:   opts.Report,
		Escape:   -1,
	}
	if tty.Raw() {
		host.Escape = ESCAPE
	}

	if len(opts.Gdb) != 0 {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		srv := &gdb.Server{Verbose: opts.Verbose, Target: host}
		err = srv.ListenAndServe(ctx, opts.Gdb)
		if err != nil {
			log.Printf("gdb: %v", err)
			return 1
		}
		return 0
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		for range sig {
			host.Stop.Store(true)
		}
	}()

	err = host.Run()
	tty.Close()

	code := 0
	if err != nil {
		log.Printf("rvhart: %v", host.Describe(err))
		if opts.Verbose {
			log.Printf("rvhart: %v", emu.Cpu)
		}
		// A test image ends on a fatal trap.
		if !opts.Report {
			code = 1
		}
	}

	if opts.Report {
		err = host.TestReport(os.Stdout)
		if err != nil {
			code = 1
		}
	}

	return code
}

func main() {
	os.Exit(run())
}
