package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Error joins the failures into one message.
func (r ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateData(&c.Data)...)
	errors = append(errors, validatePoll(&c.Poll)...)
	errors = append(errors, validateOverlay(&c.Overlay)...)
	errors = append(errors, validateServer(&c.Server)...)
	errors = append(errors, validatePrefs(&c.Prefs, &c.Gist)...)
	errors = append(errors, validateLog(&c.Log)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateData(d *DataConfig) []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(d.BaseURL)
	switch {
	case d.BaseURL == "":
		errors = append(errors, ValidationError{
			Field:   "data.base_url",
			Message: "must be set",
		})
	case err != nil:
		errors = append(errors, ValidationError{
			Field:   "data.base_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	case u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file":
		errors = append(errors, ValidationError{
			Field:   "data.base_url",
			Message: fmt.Sprintf("scheme must be http, https or file, got %q", u.Scheme),
		})
	}

	if d.Timeout < 100*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "data.timeout",
			Message: "must be at least 100ms",
		})
	}

	return errors
}

func validatePoll(p *PollConfig) []ValidationError {
	var errors []ValidationError

	if p.Interval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "poll.interval",
			Message: "must be at least 1 second",
		})
	}

	if p.AgoInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "poll.ago_interval",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateOverlay(o *OverlayConfig) []ValidationError {
	var errors []ValidationError

	if o.Dwell <= 0 {
		errors = append(errors, ValidationError{
			Field:   "overlay.dwell",
			Message: "must be positive",
		})
	}

	return errors
}

func validateServer(s *ServerConfig) []ValidationError {
	var errors []ValidationError

	if s.Port < 1 || s.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", s.Port),
		})
	}

	return errors
}

func validatePrefs(p *PrefsConfig, g *GistConfig) []ValidationError {
	var errors []ValidationError

	switch p.Backend {
	case BackendSQLite:
		if p.DBPath == "" {
			errors = append(errors, ValidationError{
				Field:   "prefs.db_path",
				Message: "required for the sqlite backend",
			})
		}
	case BackendGist:
		if g.Token == "" {
			errors = append(errors, ValidationError{
				Field:   "gist.token",
				Message: "GITHUB_TOKEN is required for the gist backend",
			})
		}
	case BackendMemory:
	default:
		errors = append(errors, ValidationError{
			Field:   "prefs.backend",
			Message: fmt.Sprintf("must be sqlite, gist or memory, got %q", p.Backend),
		})
	}

	if strings.TrimSpace(p.Key) == "" {
		errors = append(errors, ValidationError{
			Field:   "prefs.key",
			Message: "must not be empty",
		})
	}

	return errors
}

func validateLog(l *LogConfig) []ValidationError {
	var errors []ValidationError

	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", l.Level),
		})
	}

	if l.Format != "json" && l.Format != "console" {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("must be json or console, got %q", l.Format),
		})
	}

	return errors
}
