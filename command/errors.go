package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicate         = errors.New("command: name already registered")
	ErrInvalidDefinition = errors.New("command: invalid definition")
)

// ArgumentError reports arguments that are missing or fail coercion. Its
// message is sent back to the invoking channel.
type ArgumentError struct {
	Command string
	Missing []string
	Param   Param
	Value   string
	Usage   string
	Err     error
}

func (e *ArgumentError) Error() string {
	var msg string
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("Not enough arguments for %s, required arguments: %s", e.Command, strings.Join(e.Missing, ", "))
	} else {
		msg = fmt.Sprintf("%q is not a valid %s for %s", e.Value, e.Param.Type, e.Param.Name)
	}
	if e.Usage != "" {
		msg += ". Usage: " + e.Usage
	}
	return msg
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// HandlerError wraps an error or panic raised by a handler.
type HandlerError struct {
	Command string
	Err     error
	Stack   []byte
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("command %s: %v", e.Command, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
