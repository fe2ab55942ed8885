package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ============================================================================
// Defaults and validation
// ============================================================================

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.Equal(t, "ChessInsight", s.AppName)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, 8000, s.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", s.Server.Address())
	assert.Equal(t, "/usr/bin/stockfish", s.Engine.Path)
	assert.Equal(t, 10, s.Engine.DefaultDepth)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, s.CORS.AllowOrigins)
	assert.True(t, s.CORS.AllowCredentials)
	assert.False(t, s.RateLimit.Enabled)
	assert.Equal(t, SourceDefault, s.Source("server.port"))
	require.NoError(t, s.Validate())
}

func TestLoad_RateLimitFromEnvironment(t *testing.T) {
	env := map[string]string{EnvRateLimit: "0.5", EnvRateLimitBurst: "2"}
	s, err := Load(LoadOptions{Dir: t.TempDir(), LookupEnv: envMap(env)})
	require.NoError(t, err)

	assert.True(t, s.RateLimit.Enabled)
	assert.Equal(t, 0.5, s.RateLimit.RequestsPerSecond)
	assert.Equal(t, 2, s.RateLimit.Burst)
	assert.Equal(t, SourceEnv, s.Source("rateLimit.requestsPerSecond"))

	env[EnvRateLimit] = "0"
	s, err = Load(LoadOptions{Dir: t.TempDir(), LookupEnv: envMap(env)})
	require.NoError(t, err)
	assert.False(t, s.RateLimit.Enabled)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid defaults", func(*Settings) {}, ""},
		{"port too high", func(s *Settings) { s.Server.Port = 70000 }, "server.port: 70000 is out of range"},
		{"empty engine path", func(s *Settings) { s.Engine.Path = "" }, "engine.path: must not be empty"},
		{"default above max", func(s *Settings) { s.Engine.DefaultDepth = 50 }, "engine.defaultDepth: must be within 1..40, got 50"},
		{"zero max depth", func(s *Settings) { s.Engine.MaxDepth = 0 }, "engine.maxDepth: must be at least 1"},
		{"zero timeout", func(s *Settings) { s.Engine.AnalysisTimeout = 0 }, "engine.analysisTimeout: must be positive"},
		{"unknown log level", func(s *Settings) { s.Logging.Level = "trace" }, `logging.level: unknown level "trace"`},
		{"rate limit without rate", func(s *Settings) {
			s.RateLimit.Enabled = true
			s.RateLimit.RequestsPerSecond = 0
		}, "rateLimit.requestsPerSecond: must be positive"},
		{"disabled rate limit is not checked", func(s *Settings) { s.RateLimit.RequestsPerSecond = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCORSConfig_GetAllowOriginValue(t *testing.T) {
	tests := []struct {
		name   string
		config CORSConfig
		origin string
		want   string
	}{
		{"listed origin is echoed", DefaultCORSConfig(), "http://localhost:5173", "http://localhost:5173"},
		{"unlisted origin", DefaultCORSConfig(), "http://evil.example", ""},
		{"no origin header", DefaultCORSConfig(), "", ""},
		{"disabled", CORSConfig{AllowOrigins: []string{"*"}}, "http://a.example", ""},
		{"wildcard", CORSConfig{Enabled: true, AllowOrigins: []string{"*"}}, "http://a.example", "*"},
		{
			"wildcard with credentials echoes",
			CORSConfig{Enabled: true, AllowOrigins: []string{"*"}, AllowCredentials: true},
			"http://a.example", "http://a.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.GetAllowOriginValue(tt.origin))
		})
	}
}

// ============================================================================
// Layering
// ============================================================================

func TestLoad_DefaultsOnly(t *testing.T) {
	s, err := Load(LoadOptions{Dir: t.TempDir(), LookupEnv: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, Defaults().Server, s.Server)
	assert.Empty(t, s.File)
	assert.Empty(t, s.Sources)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chessinsight.yaml", `
appName: Insight Staging
server:
  port: 9000
engine:
  path: ${ENGINE_HOME:-/opt/engines}/stockfish
  defaultDepth: 12
  analysisTimeout: 30s
  options:
    Threads: 4
    Hash: "256"
  env:
    NNUE_DIR: /opt/nnue
logging:
  format: json
`)

	s, err := Load(LoadOptions{Dir: dir, LookupEnv: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "chessinsight.yaml"), s.File)
	assert.Equal(t, "Insight Staging", s.AppName)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, 9000, s.Server.Port)
	assert.Equal(t, "0.0.0.0", s.Server.Host)
	assert.Equal(t, "/opt/engines/stockfish", s.Engine.Path)
	assert.Equal(t, 12, s.Engine.DefaultDepth)
	assert.Equal(t, 40, s.Engine.MaxDepth)
	assert.Equal(t, 30*time.Second, s.Engine.AnalysisTimeout)
	assert.Equal(t, map[string]string{"Threads": "4", "Hash": "256"}, s.Engine.Options)
	assert.Equal(t, map[string]string{"NNUE_DIR": "/opt/nnue"}, s.Engine.Env)
	assert.Equal(t, "json", s.Logging.Format)

	assert.Equal(t, SourceFile, s.Source("server.port"))
	assert.Equal(t, SourceFile, s.Source("engine.options"))
	assert.Equal(t, SourceFile, s.Source("engine.env"))
	assert.Equal(t, SourceDefault, s.Source("server.host"))
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.yaml", `
server:
  port: 9000
engine:
  path: /from/file
  defaultDepth: 12
`)
	writeFile(t, dir, ".env", `
CHESSINSIGHT_PORT=9100
CHESSINSIGHT_ENGINE_PATH=/from/dotenv
ENVIRONMENT=staging
`)

	env := envMap(map[string]string{
		EnvPort:                  "9200",
		EnvEngineAnalysisTimeout: "45",
		EnvCORSOrigins:           "https://a.example, https://b.example,",
	})
	s, err := Load(LoadOptions{Dir: dir, File: filepath.Join(dir, "settings.yaml"), LookupEnv: env})
	require.NoError(t, err)

	assert.Equal(t, 9200, s.Server.Port)
	assert.Equal(t, SourceEnv, s.Source("server.port"))
	assert.Equal(t, "/from/dotenv", s.Engine.Path)
	assert.Equal(t, SourceDotEnv, s.Source("engine.path"))
	assert.Equal(t, 12, s.Engine.DefaultDepth)
	assert.Equal(t, SourceFile, s.Source("engine.defaultDepth"))
	assert.Equal(t, "staging", s.Environment)
	assert.Equal(t, 45*time.Second, s.Engine.AnalysisTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORS.AllowOrigins)

	s.SetPort(9300)
	assert.Equal(t, 9300, s.Server.Port)
	assert.Equal(t, SourceFlag, s.Source("server.port"))
}

func TestLoad_ConfigFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "elsewhere.yml", "environment: production\n")

	s, err := Load(LoadOptions{Dir: t.TempDir(), LookupEnv: envMap(map[string]string{EnvConfig: path})})
	require.NoError(t, err)
	assert.Equal(t, "production", s.Environment)
	assert.Equal(t, path, s.File)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantIs  error
		wantErr string
	}{
		{
			name:   "schema violation",
			file:   "server:\n  port: 99999\nengine:\n  stopGrace: 5\n",
			wantIs: ErrInvalidFile,
		},
		{
			name:    "unknown key",
			file:    "engine:\n  pth: /usr/bin/stockfish\n",
			wantIs:  ErrInvalidFile,
			wantErr: "engine",
		},
		{
			name:   "broken yaml",
			file:   "server: [port\n",
			wantIs: ErrInvalidYAML,
		},
		{
			name:    "bad env value",
			env:     map[string]string{EnvPort: "eighty"},
			wantErr: "CHESSINSIGHT_PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, dir, "chessinsight.yaml", tt.file)
			}
			_, err := Load(LoadOptions{Dir: dir, LookupEnv: envMap(tt.env)})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml"), LookupEnv: envMap(nil)})
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestFileError_ListsFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chessinsight.yaml", "server:\n  port: -1\nlogging:\n  format: xml\n")

	_, err := Load(LoadOptions{Dir: dir, LookupEnv: envMap(nil)})
	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)

	var fields []string
	for _, f := range fileErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Subset(t, fields, []string{"server.port", "logging.format"})
}

func TestExpandEnvVars(t *testing.T) {
	lookup := envMap(map[string]string{"HOST": "engine.local", "EMPTY": ""})

	assert.Equal(t, "engine.local:9", ExpandEnvVars("${HOST}:9", lookup))
	assert.Equal(t, "fallback", ExpandEnvVars("${MISSING:-fallback}", lookup))
	assert.Equal(t, "fallback", ExpandEnvVars("${EMPTY:-fallback}", lookup))
	assert.Equal(t, "", ExpandEnvVars("${MISSING}", lookup))
	assert.Equal(t, "$HOST", ExpandEnvVars("$HOST", lookup))
}
