package cli

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/e-commerce/testrunner/core"
	dockeradapter "github.com/e-commerce/testrunner/core/adapters/docker"
)

// ErrValidationFailed is returned when struct validation fails.
var ErrValidationFailed = errors.New("validation failed")

var (
	envVarPattern        = regexp.MustCompile(`(?s)^[A-Za-z_][A-Za-z0-9_]*(=.*)?$`)
	containerNamePattern = regexp.MustCompile(`^/?[a-zA-Z0-9][a-zA-Z0-9_.-]+$`)
)

// configValidator is the package-level validator instance
var configValidator *validator.Validate

func init() {
	configValidator = validator.New()

	// Report config keys, not Go field names.
	configValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = configValidator.RegisterValidation("dockerimage", validateDockerImage)
	_ = configValidator.RegisterValidation("duration_gte", validateDurationGTE)
	_ = configValidator.RegisterValidation("dburl", validateDatabaseURL)
	_ = configValidator.RegisterValidation("envvar", validateEnvVar)
	_ = configValidator.RegisterValidation("label", validateLabel)
	_ = configValidator.RegisterValidation("containername", validateContainerName)
	_ = configValidator.RegisterValidation("platform", validatePlatform)
	_ = configValidator.RegisterValidation("loglevel", validateLogLevel)
}

// ValidateConfig validates a configuration struct using struct tags
func ValidateConfig(cfg interface{}) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatValidationError(e))
	}

	return fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(messages, "\n  "))
}

// formatValidationError formats a single validation error for display.
// Values that may carry secrets are never echoed.
func formatValidationError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()
	param := e.Param()
	value := e.Value()

	switch tag {
	case "required":
		return fmt.Sprintf("%s: required field is empty", field)
	case "gte":
		return fmt.Sprintf("%s: must be >= %s (got: %v)", field, param, value)
	case "lte":
		return fmt.Sprintf("%s: must be <= %s (got: %v)", field, param, value)
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s] (got: %v)", field, param, value)
	case "startswith":
		return fmt.Sprintf("%s: must start with %q (got: %v)", field, param, value)
	case "alphanum":
		return fmt.Sprintf("%s: must be alphanumeric (got: %v)", field, value)
	case "dockerimage":
		return fmt.Sprintf("%s: must be a valid Docker image reference (got: %v)", field, value)
	case "duration_gte":
		return fmt.Sprintf("%s: duration must be >= %s (got: %v)", field, param, value)
	case "dburl":
		_, err := core.ParseDatabaseURL(fmt.Sprint(value))
		return fmt.Sprintf("%s: %v", field, err)
	case "envvar":
		key, _, _ := strings.Cut(fmt.Sprint(value), "=")
		return fmt.Sprintf("%s: must be KEY or KEY=VALUE (got key: %q)", field, key)
	case "label":
		return fmt.Sprintf("%s: must be key=value (got: %v)", field, value)
	case "containername":
		return fmt.Sprintf("%s: must match [a-zA-Z0-9][a-zA-Z0-9_.-]+ (got: %v)", field, value)
	case "platform":
		return fmt.Sprintf("%s: must be os/arch[/variant] (got: %v)", field, value)
	case "loglevel":
		return fmt.Sprintf("%s: unknown log level (got: %v)", field, value)
	default:
		return fmt.Sprintf("%s: validation '%s' failed", field, tag)
	}
}

// validateDockerImage validates a Docker image reference
func validateDockerImage(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // required handles empty
	}
	return dockeradapter.ValidImageReference(value)
}

// validateDurationGTE validates that a duration is >= a minimum value
func validateDurationGTE(fl validator.FieldLevel) bool {
	field := fl.Field()
	param := fl.Param()

	minDur, err := time.ParseDuration(param)
	if err != nil {
		return false
	}

	if dur, ok := field.Interface().(time.Duration); ok {
		return dur >= minDur
	}

	if field.Kind() == reflect.Int64 {
		return time.Duration(field.Int()) >= minDur
	}

	return true
}

func validateDatabaseURL(fl validator.FieldLevel) bool {
	_, err := core.ParseDatabaseURL(fl.Field().String())
	return err == nil
}

func validateEnvVar(fl validator.FieldLevel) bool {
	return envVarPattern.MatchString(fl.Field().String())
}

func validateLabel(fl validator.FieldLevel) bool {
	k, _, ok := strings.Cut(fl.Field().String(), "=")
	return ok && strings.TrimSpace(k) != ""
}

func validateContainerName(fl validator.FieldLevel) bool {
	return containerNamePattern.MatchString(fl.Field().String())
}

func validatePlatform(fl validator.FieldLevel) bool {
	_, err := dockeradapter.ParsePlatform(fl.Field().String())
	return err == nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logrus.ParseLevel(strings.ToLower(fl.Field().String()))
	return err == nil
}

// UnknownKeyWarning represents a warning about an unknown configuration key.
// An empty Key means the whole section is unknown.
type UnknownKeyWarning struct {
	Section    string
	Key        string
	Suggestion string // "did you mean?" suggestion, if available
}

// GenerateUnknownKeyWarnings generates warnings for unknown keys with suggestions
func GenerateUnknownKeyWarnings(section string, unusedKeys []string, knownKeys []string) []UnknownKeyWarning {
	warnings := make([]UnknownKeyWarning, 0, len(unusedKeys))

	for _, key := range unusedKeys {
		warnings = append(warnings, UnknownKeyWarning{
			Section:    section,
			Key:        key,
			Suggestion: findClosestMatch(key, knownKeys),
		})
	}

	return warnings
}

// findClosestMatch finds the closest matching key using simple edit distance
func findClosestMatch(key string, candidates []string) string {
	key = strings.ToLower(key)
	bestMatch := ""
	bestDistance := len(key) + 1

	// Only suggest if reasonably close (< 3 edits or < 40% of key length)
	threshold := 3
	if len(key) > 5 {
		threshold = max(threshold, len(key)*2/5)
	}

	for _, candidate := range candidates {
		candidate = strings.ToLower(candidate)
		distance := levenshteinDistance(key, candidate)

		if distance < bestDistance && distance <= threshold {
			bestDistance = distance
			bestMatch = candidate
		}
	}

	return bestMatch
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
