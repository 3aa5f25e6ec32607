package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options controls a run. A profile file provides defaults, and flags set
// on the command line override it.
type Options struct {
	Image    string `yaml:"image"`    // ELF or raw binary image.
	Source   string `yaml:"source"`   // Assembly source.
	Gdb      string `yaml:"gdb"`      // Debugger listen address.
	Audio    bool   `yaml:"audio"`    // Play the audio device.
	Terminal bool   `yaml:"terminal"` // Raw terminal input to the UART.
	Steps    int    `yaml:"steps"`    // Step limit, zero for none.
	Report   bool   `yaml:"report"`   // Report UART test results.
	Verbose  bool   `yaml:"verbose"`
	Locale   string `yaml:"locale"`
}

// flagField maps command line flag names to their option.
var flagField = map[string]func(dst, src *Options){
	"i": func(dst, src *Options) { dst.Image = src.Image },
	"c": func(dst, src *Options) { dst.Source = src.Source },
	"g": func(dst, src *Options) { dst.Gdb = src.Gdb },
	"a": func(dst, src *Options) { dst.Audio = src.Audio },
	"t": func(dst, src *Options) { dst.Terminal = src.Terminal },
	"n": func(dst, src *Options) { dst.Steps = src.Steps },
	"x": func(dst, src *Options) { dst.Report = src.Report },
	"v": func(dst, src *Options) { dst.Verbose = src.Verbose },
	"l": func(dst, src *Options) { dst.Locale = src.Locale },
}

// ParseProfile decodes a YAML run profile.
func ParseProfile(data []byte) (opts *Options, err error) {
	opts = &Options{}
	err = yaml.Unmarshal(data, opts)
	if err != nil {
		opts = nil
		err = fmt.Errorf("profile: %w", err)
	}

	return
}

// LoadProfile reads a YAML run profile.
func LoadProfile(path string) (opts *Options, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	return ParseProfile(data)
}

// Override copies the options named by the set flags from src.
func (opts *Options) Override(src *Options, set []string) {
	for _, name := range set {
		update, ok := flagField[name]
		if ok {
			update(opts, src)
		}
	}
}

// Validate checks for a usable combination of options.
func (opts *Options) Validate() (err error) {
	switch {
	case len(opts.Image) == 0 && len(opts.Source) == 0:
		err = ErrNoImage
	case len(opts.Image) != 0 && len(opts.Source) != 0:
		err = ErrImageAndSource
	case opts.Steps < 0:
		err = ErrSteps
	}

	return
}
