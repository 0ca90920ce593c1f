package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigration struct {
	calls   []string
	err     error
	steps   int
	version uint
	dirty   bool
}

func (f *fakeMigration) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeMigration) Up() error   { return f.record("up") }
func (f *fakeMigration) Down() error { return f.record("down") }

func (f *fakeMigration) Steps(n int) error {
	f.steps = n
	return f.record("steps")
}

func (f *fakeMigration) Force(v int) error { return f.record("force") }

func (f *fakeMigration) Version() (uint, bool, error) {
	return f.version, f.dirty, f.record("version")
}

func TestParseFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/summitpay")

	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "up", opts.direction)
	assert.Equal(t, defaultMigrationsPath, opts.path)
	assert.Equal(t, "postgres://env/summitpay", opts.dbURL)

	opts, err = parseFlags([]string{"-direction", "steps", "-n", "-1", "-db", "postgres://flag/summitpay"})
	require.NoError(t, err)
	assert.Equal(t, -1, opts.steps)
	assert.Equal(t, "postgres://flag/summitpay", opts.dbURL)
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := map[string][]string{
		"unknown direction": {"-direction", "sideways"},
		"steps without n":   {"-direction", "steps"},
		"force without v":   {"-direction", "force"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseFlags(args)
			assert.Error(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	m := &fakeMigration{}
	require.NoError(t, run(m, options{direction: "steps", steps: 2}, logger))
	assert.Equal(t, []string{"steps"}, m.calls)
	assert.Equal(t, 2, m.steps)

	m = &fakeMigration{err: migrate.ErrNoChange}
	require.NoError(t, run(m, options{direction: "up"}, logger))
	assert.Contains(t, buf.String(), "Schema already up to date")

	m = &fakeMigration{err: errors.New("dirty database version 3")}
	assert.EqualError(t, run(m, options{direction: "down"}, logger), "dirty database version 3")
}

func TestRun_Version(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	require.NoError(t, run(&fakeMigration{version: 4}, options{direction: "version"}, logger))
	assert.Contains(t, buf.String(), `"version":4`)

	require.NoError(t, run(&fakeMigration{err: migrate.ErrNilVersion}, options{direction: "version"}, logger))
	assert.Contains(t, buf.String(), "No migrations applied")
}
