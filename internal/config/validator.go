package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "llm.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidGroupings returns the list of valid devplan grouping modes
func ValidGroupings() []string {
	return []string{"flat", "grouped"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLLM()...)
	errors = append(errors, c.validateInterview()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateHivemind()...)
	errors = append(errors, c.validateConcurrency()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateLLM validates the LLMConfig
func (c *Config) validateLLM() []ValidationError {
	var errors []ValidationError

	if c.LLM.Backend != "" && !IsValidBackend(c.LLM.Backend) {
		errors = append(errors, ValidationError{
			Field:   "llm.backend",
			Value:   c.LLM.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if c.LLM.Backend == "server" {
		if c.LLM.ServerURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.server_url",
				Value:   c.LLM.ServerURL,
				Message: "cannot be empty when backend is 'server'",
			})
		} else if u, err := url.Parse(c.LLM.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.server_url",
				Value:   c.LLM.ServerURL,
				Message: "must be a valid URL with scheme and host",
			})
		}
	}

	// Timeout validation
	const minTimeoutSeconds = 1
	const maxTimeoutSeconds = 3600 // 1 hour

	if c.LLM.TimeoutSeconds < minTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Value:   c.LLM.TimeoutSeconds,
			Message: fmt.Sprintf("must be at least %d second(s)", minTimeoutSeconds),
		})
	}
	if c.LLM.TimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Value:   c.LLM.TimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxTimeoutSeconds),
		})
	}

	// Cache size validation (0 disables caching, which is valid)
	const maxCacheSize = 10000
	if c.LLM.CacheSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.cache_size",
			Value:   c.LLM.CacheSize,
			Message: "must be non-negative (0 disables caching)",
		})
	}
	if c.LLM.CacheSize > maxCacheSize {
		errors = append(errors, ValidationError{
			Field:   "llm.cache_size",
			Value:   c.LLM.CacheSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCacheSize),
		})
	}

	return errors
}

// validateInterview validates the InterviewConfig
func (c *Config) validateInterview() []ValidationError {
	var errors []ValidationError

	if c.Interview.MaxHistory < 0 {
		errors = append(errors, ValidationError{
			Field:   "interview.max_history",
			Value:   c.Interview.MaxHistory,
			Message: "must be non-negative (0 uses the default)",
		})
	}

	// Reasonable upper bound to keep prompt assembly fast
	const maxHistoryLimit = 10000
	if c.Interview.MaxHistory > maxHistoryLimit {
		errors = append(errors, ValidationError{
			Field:   "interview.max_history",
			Value:   c.Interview.MaxHistory,
			Message: fmt.Sprintf("exceeds maximum of %d", maxHistoryLimit),
		})
	}

	return errors
}

// validatePipeline validates the PipelineConfig
func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if c.Pipeline.Grouping != "" && !slices.Contains(ValidGroupings(), c.Pipeline.Grouping) {
		errors = append(errors, ValidationError{
			Field:   "pipeline.grouping",
			Value:   c.Pipeline.Grouping,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidGroupings(), ", ")),
		})
	}

	const minTaskGroupSize = 1
	const maxTaskGroupSize = 50

	if c.Pipeline.TaskGroupSize < minTaskGroupSize {
		errors = append(errors, ValidationError{
			Field:   "pipeline.task_group_size",
			Value:   c.Pipeline.TaskGroupSize,
			Message: fmt.Sprintf("must be at least %d", minTaskGroupSize),
		})
	}
	if c.Pipeline.TaskGroupSize > maxTaskGroupSize {
		errors = append(errors, ValidationError{
			Field:   "pipeline.task_group_size",
			Value:   c.Pipeline.TaskGroupSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTaskGroupSize),
		})
	}

	return errors
}

// validateHivemind validates the HivemindConfig
func (c *Config) validateHivemind() []ValidationError {
	var errors []ValidationError

	const minDroneCount = 1
	const maxDroneCount = 20

	if c.Hivemind.DroneCount < minDroneCount {
		errors = append(errors, ValidationError{
			Field:   "hivemind.drone_count",
			Value:   c.Hivemind.DroneCount,
			Message: fmt.Sprintf("must be at least %d", minDroneCount),
		})
	}
	if c.Hivemind.DroneCount > maxDroneCount {
		errors = append(errors, ValidationError{
			Field:   "hivemind.drone_count",
			Value:   c.Hivemind.DroneCount,
			Message: fmt.Sprintf("exceeds maximum of %d", maxDroneCount),
		})
	}

	return errors
}

// validateConcurrency validates the ConcurrencyConfig
func (c *Config) validateConcurrency() []ValidationError {
	var errors []ValidationError

	const minLimit = 1
	const maxLimit = 64

	if c.Concurrency.Limit < minLimit {
		errors = append(errors, ValidationError{
			Field:   "concurrency.limit",
			Value:   c.Concurrency.Limit,
			Message: fmt.Sprintf("must be at least %d", minLimit),
		})
	}
	if c.Concurrency.Limit > maxLimit {
		errors = append(errors, ValidationError{
			Field:   "concurrency.limit",
			Value:   c.Concurrency.Limit,
			Message: fmt.Sprintf("exceeds maximum of %d", maxLimit),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	errors = append(errors, validatePathValue(c.Paths.SaveDir, "paths.save_dir")...)
	errors = append(errors, validatePathValue(c.Paths.SessionsDir, "paths.sessions_dir")...)
	errors = append(errors, validatePathValue(c.Paths.PromptsDir, "paths.prompts_dir")...)

	return errors
}

// validatePathValue checks a configured path for invalid characters and length
func validatePathValue(path, field string) []ValidationError {
	var errors []ValidationError

	if path == "" {
		return nil
	}

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	// Reasonable path length limit (most filesystems have limits around 4096)
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
