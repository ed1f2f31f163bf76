package config

import (
	"os"
	"path/filepath"

	"bookshelf/internal/logging"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "log.level")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	var findings []ConfigValidationError
	findings = append(findings, ValidatePaths(cfg)...)
	findings = append(findings, ValidateSettings(cfg)...)

	for _, f := range findings {
		if f.Severity == SeverityError {
			result.Errors = append(result.Errors, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidatePaths checks the data file and audit directory locations.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.DataFile == "" {
		errors = append(errors, ConfigValidationError{
			Field:    "data_file",
			Message:  "data file path cannot be empty",
			Severity: SeverityError,
		})
	} else {
		info, err := os.Stat(cfg.DataFile)
		switch {
		case err == nil && info.IsDir():
			errors = append(errors, ConfigValidationError{
				Field:    "data_file",
				Message:  "path is a directory: " + cfg.DataFile,
				Severity: SeverityError,
			})
		case err != nil && os.IsNotExist(err):
			parent := filepath.Dir(cfg.DataFile)
			parentInfo, parentErr := os.Stat(parent)
			if parentErr != nil || !parentInfo.IsDir() {
				errors = append(errors, ConfigValidationError{
					Field:    "data_file",
					Message:  "parent directory does not exist: " + parent,
					Severity: SeverityError,
				})
			} else {
				errors = append(errors, ConfigValidationError{
					Field:    "data_file",
					Message:  "data file does not exist yet and will be created: " + cfg.DataFile,
					Severity: SeverityWarning,
				})
			}
		case err != nil:
			errors = append(errors, ConfigValidationError{
				Field:    "data_file",
				Message:  "error accessing data file: " + err.Error(),
				Severity: SeverityError,
			})
		}
	}

	if cfg.Audit.Enabled && cfg.Audit.Directory == "" {
		errors = append(errors, ConfigValidationError{
			Field:    "audit.directory",
			Message:  "audit directory cannot be empty when audit is enabled",
			Severity: SeverityError,
		})
	}

	return errors
}

// ValidateSettings checks enumerated values and durations.
func ValidateSettings(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if !logging.ValidLevel(cfg.Log.Level) {
		errors = append(errors, ConfigValidationError{
			Field:    "log.level",
			Message:  "invalid log level: \"" + cfg.Log.Level + "\"",
			Severity: SeverityError,
		})
	}

	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		errors = append(errors, ConfigValidationError{
			Field:    "log.format",
			Message:  "invalid log format: \"" + cfg.Log.Format + "\". Must be \"json\" or \"console\"",
			Severity: SeverityError,
		})
	}

	if cfg.Watch.Debounce < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    "watch.debounce",
			Message:  "debounce must not be negative",
			Severity: SeverityError,
		})
	}

	if cfg.Server.Addr == "" {
		errors = append(errors, ConfigValidationError{
			Field:    "server.addr",
			Message:  "server address cannot be empty",
			Severity: SeverityError,
		})
	}

	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, ConfigValidationError{
			Field:    "server",
			Message:  "read and write timeouts must be positive",
			Severity: SeverityError,
		})
	}

	if cfg.Server.RateLimit < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    "server.rate_limit",
			Message:  "rate limit must not be negative",
			Severity: SeverityError,
		})
	}

	return errors
}
