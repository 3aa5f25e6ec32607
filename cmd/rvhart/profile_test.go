package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfile(t *testing.T) {
	assert := assert.New(t)

	opts, err := ParseProfile([]byte(`
image: bad_apple.elf
gdb: localhost:1234
audio: true
steps: 1000
verbose: true
`))
	assert.NoError(err)
	assert.Equal(&Options{
		Image:   "bad_apple.elf",
		Gdb:     "localhost:1234",
		Audio:   true,
		Steps:   1000,
		Verbose: true,
	}, opts)

	_, err = ParseProfile([]byte("steps: many"))
	assert.Error(err)
}

func TestProfile_Load(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "run.yaml")
	err := os.WriteFile(path, []byte("source: test.s\nreport: true\n"), 0o644)
	assert.NoError(err)

	opts, err := LoadProfile(path)
	assert.NoError(err)
	assert.Equal("test.s", opts.Source)
	assert.True(opts.Report)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}

func TestOptions_Override(t *testing.T) {
	assert := assert.New(t)

	opts := &Options{Image: "a.elf", Steps: 10, Audio: true}
	cli := &Options{Steps: 20, Audio: false, Verbose: true}

	opts.Override(cli, []string{"n", "a", "p"})
	assert.Equal(&Options{Image: "a.elf", Steps: 20}, opts)
}

func TestOptions_Validate(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		opts Options
		err  error
	}{
		{Options{Image: "a.elf"}, nil},
		{Options{Source: "a.s"}, nil},
		{Options{}, ErrNoImage},
		{Options{Image: "a.elf", Source: "a.s"}, ErrImageAndSource},
		{Options{Image: "a.elf", Steps: -1}, ErrSteps},
	}

	for _, entry := range table {
		assert.Equal(entry.err, entry.opts.Validate(), "%+v", entry.opts)
	}
}
