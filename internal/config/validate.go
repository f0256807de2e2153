package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/dsconv/internal/emitter"
)

var (
	// ErrInvalidWidth indicates a non-positive report width
	ErrInvalidWidth = errors.New("invalid report width")

	// ErrInvalidPlaceholder indicates a placeholder that would corrupt the values line
	ErrInvalidPlaceholder = errors.New("invalid placeholder")

	// ErrInvalidIdentifier indicates a struct tag or variable name that is not a C identifier
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid debounce")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateReport(&cfg.Report); err != nil {
		errs = append(errs, err)
	}

	if err := validateStruct(&cfg.Struct); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateReport(cfg *ReportConfig) error {
	var errs []error

	if cfg.Width <= 0 {
		errs = append(errs, fmt.Errorf("%w: width must be positive, got %d", ErrInvalidWidth, cfg.Width))
	}

	if strings.TrimSpace(cfg.Placeholder) == "" {
		errs = append(errs, fmt.Errorf("%w: placeholder is required", ErrInvalidPlaceholder))
	} else if strings.ContainsAny(cfg.Placeholder, ",\n") {
		errs = append(errs, fmt.Errorf("%w: placeholder cannot contain ',' or newlines, got %q", ErrInvalidPlaceholder, cfg.Placeholder))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStruct(cfg *StructConfig) error {
	var errs []error

	if !emitter.IsIdentifier(cfg.Tag) {
		errs = append(errs, fmt.Errorf("%w: tag %q", ErrInvalidIdentifier, cfg.Tag))
	}

	if !emitter.IsIdentifier(cfg.VarName) {
		errs = append(errs, fmt.Errorf("%w: var_name %q", ErrInvalidIdentifier, cfg.VarName))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Sentinel errors stay reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - "), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
