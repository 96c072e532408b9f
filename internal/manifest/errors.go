package manifest

import "fmt"

// ManifestError represents a manifest decoding error.
type ManifestError struct {
	File    string
	Line    int
	Message string
}

func (e *ManifestError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents a field the target entity kind does not have.
type UnknownFieldError struct {
	File  string
	Line  int
	Kind  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in %s", e.Field, e.Kind)
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
