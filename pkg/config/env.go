package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvConfig                = "CHESSINSIGHT_CONFIG"
	EnvAppName               = "CHESSINSIGHT_APP_NAME"
	EnvEnvironment           = "CHESSINSIGHT_ENVIRONMENT"
	EnvHost                  = "CHESSINSIGHT_HOST"
	EnvPort                  = "CHESSINSIGHT_PORT"
	EnvShutdownTimeout       = "CHESSINSIGHT_SHUTDOWN_TIMEOUT"
	EnvCORSOrigins           = "CHESSINSIGHT_CORS_ORIGINS"
	EnvCORSCredentials       = "CHESSINSIGHT_CORS_CREDENTIALS"
	EnvEnginePath            = "CHESSINSIGHT_ENGINE_PATH"
	EnvEngineDepth           = "CHESSINSIGHT_ENGINE_DEPTH"
	EnvEngineMaxDepth        = "CHESSINSIGHT_ENGINE_MAX_DEPTH"
	EnvEngineStartupTimeout  = "CHESSINSIGHT_ENGINE_STARTUP_TIMEOUT"
	EnvEngineAnalysisTimeout = "CHESSINSIGHT_ENGINE_ANALYSIS_TIMEOUT"
	EnvLogLevel              = "CHESSINSIGHT_LOG_LEVEL"
	EnvLogFormat             = "CHESSINSIGHT_LOG_FORMAT"
	EnvLogFile               = "CHESSINSIGHT_LOG_FILE"
	EnvRateLimit             = "CHESSINSIGHT_RATE_LIMIT"
	EnvRateLimitBurst        = "CHESSINSIGHT_RATE_LIMIT_BURST"
)

// envBinding maps one setting to the variables that can set it. Earlier
// names win; the unprefixed APP_NAME and ENVIRONMENT are accepted as
// fallbacks.
type envBinding struct {
	names []string
	key   string
	set   func(s *Settings, v string) error
}

var envBindings = []envBinding{
	{[]string{EnvAppName, "APP_NAME"}, "appName", func(s *Settings, v string) error {
		s.AppName = v
		return nil
	}},
	{[]string{EnvEnvironment, "ENVIRONMENT"}, "environment", func(s *Settings, v string) error {
		s.Environment = v
		return nil
	}},
	{[]string{EnvHost}, "server.host", func(s *Settings, v string) error {
		s.Server.Host = v
		return nil
	}},
	{[]string{EnvPort}, "server.port", intSetter(func(s *Settings) *int { return &s.Server.Port })},
	{[]string{EnvShutdownTimeout}, "server.shutdownTimeout",
		durationSetter(func(s *Settings) *time.Duration { return &s.Server.ShutdownTimeout })},
	{[]string{EnvCORSOrigins}, "cors.allowOrigins", func(s *Settings, v string) error {
		s.CORS.AllowOrigins = SplitList(v)
		return nil
	}},
	{[]string{EnvCORSCredentials}, "cors.allowCredentials", func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		s.CORS.AllowCredentials = b
		return nil
	}},
	{[]string{EnvEnginePath}, "engine.path", func(s *Settings, v string) error {
		s.Engine.Path = v
		return nil
	}},
	{[]string{EnvEngineDepth}, "engine.defaultDepth", intSetter(func(s *Settings) *int { return &s.Engine.DefaultDepth })},
	{[]string{EnvEngineMaxDepth}, "engine.maxDepth", intSetter(func(s *Settings) *int { return &s.Engine.MaxDepth })},
	{[]string{EnvEngineStartupTimeout}, "engine.startupTimeout",
		durationSetter(func(s *Settings) *time.Duration { return &s.Engine.StartupTimeout })},
	{[]string{EnvEngineAnalysisTimeout}, "engine.analysisTimeout",
		durationSetter(func(s *Settings) *time.Duration { return &s.Engine.AnalysisTimeout })},
	{[]string{EnvLogLevel}, "logging.level", func(s *Settings, v string) error {
		s.Logging.Level = v
		return nil
	}},
	{[]string{EnvLogFormat}, "logging.format", func(s *Settings, v string) error {
		s.Logging.Format = v
		return nil
	}},
	{[]string{EnvLogFile}, "logging.file", func(s *Settings, v string) error {
		s.Logging.File = v
		return nil
	}},
	{[]string{EnvRateLimit}, "rateLimit.requestsPerSecond", func(s *Settings, v string) error {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		// Zero turns limiting off.
		s.RateLimit.RequestsPerSecond = rps
		s.RateLimit.Enabled = rps > 0
		return nil
	}},
	{[]string{EnvRateLimitBurst}, "rateLimit.burst", intSetter(func(s *Settings) *int { return &s.RateLimit.Burst })},
}

func intSetter(field func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

// durationSetter accepts Go durations ("30s") or a plain number of seconds.
func durationSetter(field func(*Settings) *time.Duration) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		if secs, err := strconv.Atoi(v); err == nil {
			*field(s) = time.Duration(secs) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(s) = d
		return nil
	}
}

// applyEnv sets every bound value that lookup knows about and records
// source for it. Empty values are ignored.
func applyEnv(s *Settings, lookup func(string) (string, bool), source string) error {
	for _, b := range envBindings {
		for _, name := range b.names {
			v, ok := lookup(name)
			v = strings.TrimSpace(v)
			if !ok || v == "" {
				continue
			}
			if err := b.set(s, v); err != nil {
				return fmt.Errorf("%s=%q: %w", name, v, err)
			}
			s.mark(b.key, source)
			break
		}
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
