package config

import "slices"

// CORSConfig defines Cross-Origin Resource Sharing settings for the HTTP
// API.
type CORSConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// AllowOrigins lists exact origins. "*" allows any origin.
	AllowOrigins     []string `json:"allowOrigins,omitempty" yaml:"allowOrigins,omitempty"`
	AllowMethods     []string `json:"allowMethods,omitempty" yaml:"allowMethods,omitempty"`
	AllowHeaders     []string `json:"allowHeaders,omitempty" yaml:"allowHeaders,omitempty"`
	ExposeHeaders    []string `json:"exposeHeaders,omitempty" yaml:"exposeHeaders,omitempty"`
	AllowCredentials bool     `json:"allowCredentials" yaml:"allowCredentials"`
	// MaxAge is the preflight cache duration in seconds.
	MaxAge int `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`
}

// DefaultCORSConfig allows the Vite dev server of the web frontend.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled: true,
		AllowOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// IsWildcard reports whether any origin is allowed.
func (c *CORSConfig) IsWildcard() bool {
	return c != nil && slices.Contains(c.AllowOrigins, "*")
}

// GetAllowOriginValue returns the Access-Control-Allow-Origin value for a
// request from requestOrigin, or "" if the origin is not allowed. With
// credentials enabled a wildcard echoes the request origin, since browsers
// reject "*" on credentialed requests.
func (c *CORSConfig) GetAllowOriginValue(requestOrigin string) string {
	if c == nil || !c.Enabled || requestOrigin == "" {
		return ""
	}
	if c.IsWildcard() {
		if c.AllowCredentials {
			return requestOrigin
		}
		return "*"
	}
	if slices.Contains(c.AllowOrigins, requestOrigin) {
		return requestOrigin
	}
	return ""
}
