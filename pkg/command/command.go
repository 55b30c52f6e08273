// Package command is the boundary between the session's command loop and the
// converter. One received line goes in; a status and a response come out.
package command

import (
	"bytes"
	"fmt"
)

// Status is the outcome of one dispatched line.
type Status int

const (
	OK Status = iota
	ErrUndefined
	ErrNumArgs
	ErrExecute
	ErrTooLong
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case ErrUndefined:
		return "undefined"
	case ErrNumArgs:
		return "num_args"
	case ErrExecute:
		return "execute"
	case ErrTooLong:
		return "too_long"
	default:
		return fmt.Sprintf("status_%d", int(s))
	}
}

// DisconnectToken is the only response that ends a session.
const DisconnectToken = "disconnect"

// Dispatcher executes one command line.
type Dispatcher interface {
	Dispatch(line []byte) (Status, []byte)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(line []byte) (Status, []byte)

func (f DispatcherFunc) Dispatch(line []byte) (Status, []byte) { return f(line) }

// IsDisconnect reports whether resp is the disconnect token.
func IsDisconnect(resp []byte) bool {
	return bytes.Equal(resp, []byte(DisconnectToken))
}

// RenderError formats the error line sent in place of a failed command's
// response.
func RenderError(s Status, detail []byte) []byte {
	var b bytes.Buffer
	b.WriteString("ERROR: ")
	b.WriteString(errorName(s))
	if d := bytes.TrimSpace(detail); len(d) > 0 {
		b.WriteByte(' ')
		b.Write(d)
	}
	return b.Bytes()
}

func errorName(s Status) string {
	switch s {
	case ErrUndefined:
		return "command undefined"
	case ErrNumArgs:
		return "wrong number of arguments"
	case ErrExecute:
		return "execution failed"
	case ErrTooLong:
		return "command too long"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}
