package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors returned while reading a settings file.
var (
	ErrFileNotFound = errors.New("settings file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrInvalidFile  = errors.New("settings file does not match the schema")
)

// DiscoveryOrder lists the file names looked for when no file is given.
var DiscoveryOrder = []string{"chessinsight.yaml", "chessinsight.yml"}

// FileError describes a settings file that failed schema validation.
type FileError struct {
	Path   string
	Fields []FieldError
}

func (e *FileError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(parts, "; "))
}

func (e *FileError) Unwrap() error { return ErrInvalidFile }

// DiscoverFile returns the first DiscoveryOrder file present in dir, or ""
// if there is none.
func DiscoverFile(dir string) string {
	for _, name := range DiscoveryOrder {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${VAR} and ${VAR:-default} using lookup. Unset and
// empty variables expand to the default, or to nothing.
func ExpandEnvVars(input string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if v, ok := lookup(sub[1]); ok && v != "" {
			return v
		}
		return sub[2]
	})
}

// loadFile merges the YAML file at path into s.
func loadFile(s *Settings, path string, lookup func(string) (string, bool)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	expanded := []byte(ExpandEnvVars(string(data), lookup))

	var doc any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
	}
	if doc == nil {
		return nil
	}

	fields, err := validateDocument(doc)
	if err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	if len(fields) > 0 {
		return &FileError{Path: path, Fields: fields}
	}

	if err := yaml.Unmarshal(expanded, s); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for _, key := range documentKeys(doc) {
		s.mark(key, SourceFile)
	}
	return nil
}

// documentKeys lists the dotted keys set in a settings document. The option
// and environment maps count as a single key each.
func documentKeys(doc any) []string {
	var keys []string
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		m, ok := v.(map[string]any)
		if !ok || prefix == "engine.options" || prefix == "engine.env" {
			keys = append(keys, prefix)
			return
		}
		for k, child := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			walk(key, child)
		}
	}
	if m, ok := doc.(map[string]any); ok {
		for k, child := range m {
			walk(k, child)
		}
	}
	sort.Strings(keys)
	return keys
}
