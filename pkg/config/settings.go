package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/chessinsight/chessinsight/pkg/logging"
)

// Value sources, lowest precedence first.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceDotEnv  = "dotenv"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Settings is the complete runtime configuration. It is treated as read
// only once Load returns.
type Settings struct {
	AppName     string            `json:"appName" yaml:"appName"`
	Environment string            `json:"environment" yaml:"environment"`
	Server      ServerSettings    `json:"server" yaml:"server"`
	CORS        CORSConfig        `json:"cors" yaml:"cors"`
	Engine      EngineSettings    `json:"engine" yaml:"engine"`
	Logging     LoggingSettings   `json:"logging" yaml:"logging"`
	RateLimit   RateLimitSettings `json:"rateLimit" yaml:"rateLimit"`

	// File is the settings file that was loaded, if any.
	File string `json:"-" yaml:"-"`

	// Sources maps dotted keys (e.g. "engine.path") to the layer that set
	// them. Keys left at their default are absent.
	Sources map[string]string `json:"-" yaml:"-"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// Address returns host:port for net.Listen.
func (s ServerSettings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// EngineSettings configures the UCI engine process and analysis limits.
type EngineSettings struct {
	// Path is the engine executable.
	Path string   `json:"path" yaml:"path"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env is added to the environment the engine inherits.
	Env             map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	DefaultDepth    int               `json:"defaultDepth" yaml:"defaultDepth"`
	MaxDepth        int               `json:"maxDepth" yaml:"maxDepth"`
	StartupTimeout  time.Duration     `json:"startupTimeout" yaml:"startupTimeout"`
	AnalysisTimeout time.Duration     `json:"analysisTimeout" yaml:"analysisTimeout"`
	StopGrace       time.Duration     `json:"stopGrace" yaml:"stopGrace"`
	Options         map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// LoggingSettings configures pkg/logging.
type LoggingSettings struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File, when set, receives a JSON copy of every record.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// RateLimitSettings limits analysis requests per client IP. The engine
// serves one search at a time, so a single client can otherwise starve
// everyone else.
type RateLimitSettings struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`
	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `json:"trustedProxies,omitempty" yaml:"trustedProxies,omitempty"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() *Settings {
	return &Settings{
		AppName:     "ChessInsight",
		Environment: "development",
		Server: ServerSettings{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: DefaultCORSConfig(),
		Engine: EngineSettings{
			Path:            "/usr/bin/stockfish",
			DefaultDepth:    10,
			MaxDepth:        40,
			StartupTimeout:  10 * time.Second,
			AnalysisTimeout: 60 * time.Second,
			StopGrace:       2 * time.Second,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Sources: make(map[string]string),
	}
}

// Source returns the layer that set key, or SourceDefault.
func (s *Settings) Source(key string) string {
	if src, ok := s.Sources[key]; ok {
		return src
	}
	return SourceDefault
}

func (s *Settings) mark(key, source string) {
	if s.Sources == nil {
		s.Sources = make(map[string]string)
	}
	s.Sources[key] = source
}

// SetPort overrides the listen port from a command line flag.
func (s *Settings) SetPort(port int) { s.Server.Port = port; s.mark("server.port", SourceFlag) }

// SetHost overrides the listen host from a command line flag.
func (s *Settings) SetHost(host string) { s.Server.Host = host; s.mark("server.host", SourceFlag) }

// SetEnginePath overrides the engine executable from a command line flag.
func (s *Settings) SetEnginePath(path string) {
	s.Engine.Path = path
	s.mark("engine.path", SourceFlag)
}

// SetLogLevel overrides the log level from a command line flag.
func (s *Settings) SetLogLevel(level string) {
	s.Logging.Level = level
	s.mark("logging.level", SourceFlag)
}

// SetLogFormat overrides the log format from a command line flag.
func (s *Settings) SetLogFormat(format string) {
	s.Logging.Format = format
	s.mark("logging.format", SourceFlag)
}

// SetCORSOrigins overrides the allowed origins from a command line flag.
func (s *Settings) SetCORSOrigins(origins []string) {
	s.CORS.AllowOrigins = origins
	s.mark("cors.allowOrigins", SourceFlag)
}

// Validate checks cross-field constraints the schema cannot express and
// values that arrived through the environment or flags.
func (s *Settings) Validate() error {
	var errs []error
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d is out of range", s.Server.Port))
	}
	if s.Engine.Path == "" {
		errs = append(errs, errors.New("engine.path: must not be empty"))
	}
	if s.Engine.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("engine.maxDepth: must be at least 1, got %d", s.Engine.MaxDepth))
	}
	if s.Engine.DefaultDepth < 1 || s.Engine.DefaultDepth > s.Engine.MaxDepth {
		errs = append(errs, fmt.Errorf("engine.defaultDepth: must be within 1..%d, got %d",
			s.Engine.MaxDepth, s.Engine.DefaultDepth))
	}
	for _, d := range []struct {
		key   string
		value time.Duration
	}{
		{"engine.startupTimeout", s.Engine.StartupTimeout},
		{"engine.analysisTimeout", s.Engine.AnalysisTimeout},
		{"engine.stopGrace", s.Engine.StopGrace},
		{"server.shutdownTimeout", s.Server.ShutdownTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", d.key, d.value))
		}
	}
	if s.RateLimit.Enabled && s.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rateLimit.requestsPerSecond: must be positive, got %g",
			s.RateLimit.RequestsPerSecond))
	}
	if !logging.ValidLevel(s.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", s.Logging.Level))
	}
	return errors.Join(errs...)
}

// LoggingConfig converts the logging settings for logging.New.
func (s *Settings) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(s.Logging.Level)
	cfg.Format = logging.ParseFormat(s.Logging.Format)
	return cfg
}
