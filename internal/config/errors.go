package config

import (
	"errors"
	"fmt"
)

// ErrPipelineOverflow is wrapped by the ConfigurationError returned when more
// than MaxStages transforms are requested.
var ErrPipelineOverflow = errors.New("too many image operations")

// ConfigurationError reports an invalid or unparseable configuration. It is
// always fatal and is detected before the first frame is produced.
type ConfigurationError struct {
	Directive string
	Reason    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Directive != "" {
		msg = fmt.Sprintf("--%s: %s", e.Directive, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(directive, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Directive: directive, Reason: fmt.Sprintf(format, args...)}
}

// IsPipelineOverflow reports whether err was caused by exceeding MaxStages.
func IsPipelineOverflow(err error) bool {
	return errors.Is(err, ErrPipelineOverflow)
}
