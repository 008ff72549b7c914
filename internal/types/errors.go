package types

import "fmt"

// ConfigError is a fatal configuration error: the suite fails validation
// before any test body runs. Decode errors are configuration errors too;
// user-code errors from providers and validators are never wrapped in it.
type ConfigError struct {
	Site string // offending suite/method/field/parameter
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Site, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Site, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for the given site.
func Configf(site, format string, args ...any) *ConfigError {
	return &ConfigError{Site: site, Msg: fmt.Sprintf(format, args...)}
}

// ConfigWrap attaches a cause to a ConfigError, preserving it for
// errors.Is/As and message-based assertions.
func ConfigWrap(site string, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Site: site, Msg: fmt.Sprintf(format, args...), Err: err}
}
