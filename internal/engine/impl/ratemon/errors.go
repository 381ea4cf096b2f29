package ratemon

import "fmt"

// ConfigError reports a monitor that was defined or wired incorrectly:
// a bad definition, or a packet labeled with an input port the monitor
// never declared. These are deployment mistakes and are never silently
// absorbed.
type ConfigError struct {
	Monitor string
	Detail  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("monitor %q: %s", e.Monitor, e.Detail)
}

// InputError reports data the monitor cannot process: a packet without an
// IPv4 address on the selected side, or a reset baseline outside the
// counter range. The monitor itself is healthy and keeps running.
type InputError struct {
	Monitor string
	Err     error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("monitor %q: %v", e.Monitor, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
