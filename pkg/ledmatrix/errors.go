package ledmatrix

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError
	ErrInvalidConfig = errors.New("invalid panel config")
	// ErrFontLoad is matched by every *FontLoadError
	ErrFontLoad = errors.New("font load failed")
	// ErrBackend is matched by every *BackendError
	ErrBackend = errors.New("backend failure")
	// ErrInvalidChannel is returned by NewColor for channels outside [0,255]
	ErrInvalidChannel = errors.New("color channel out of range")
)

// ConfigError reports a PanelConfig field that failed validation
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid panel config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// FontLoadError reports a font resource that could not be loaded
type FontLoadError struct {
	Path string
	Err  error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("failed to load font %q: %v", e.Path, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFontLoad
func (e *FontLoadError) Is(target error) bool {
	return target == ErrFontLoad
}

// BackendError reports a failed backend operation (initialize or present)
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBackend
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
