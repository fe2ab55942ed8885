package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// File is an explicit settings file. When empty, CHESSINSIGHT_CONFIG is
	// consulted and then DiscoveryOrder in Dir.
	File string

	// Dir is searched for the settings file and .env. Defaults to ".".
	Dir string

	// DotEnv overrides the .env path. A missing file is not an error.
	DotEnv string

	// NoDotEnv disables .env loading.
	NoDotEnv bool

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds Settings from defaults, the settings file, .env and the
// environment. Flags are applied by the caller afterwards, followed by
// Validate.
func Load(opts LoadOptions) (*Settings, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	dotenv := map[string]string{}
	if !opts.NoDotEnv {
		path := opts.DotEnv
		if path == "" {
			path = filepath.Join(opts.Dir, ".env")
		}
		var err error
		if dotenv, err = readDotEnv(path); err != nil {
			return nil, err
		}
	}

	// The process environment shadows .env.
	lookup := func(name string) (string, bool) {
		if v, ok := opts.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}

	s := Defaults()

	file := opts.File
	if file == "" {
		if v, ok := lookup(EnvConfig); ok && v != "" {
			file = v
		} else {
			file = DiscoverFile(opts.Dir)
		}
	}
	if file != "" {
		if err := loadFile(s, file, lookup); err != nil {
			return nil, err
		}
		s.File = file
	}

	dotenvLookup := func(name string) (string, bool) {
		v, ok := dotenv[name]
		return v, ok
	}
	if err := applyEnv(s, dotenvLookup, SourceDotEnv); err != nil {
		return nil, fmt.Errorf(".env: %w", err)
	}
	if err := applyEnv(s, opts.LookupEnv, SourceEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return s, nil
}

// readDotEnv parses a .env file without touching the process environment.
// Missing files are ignored.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}
