// Package message implements the wire frame spoken on the TCP surface.
// A request frame is a command identifier, optionally followed by a
// single space and a payload that is handed to the owning plugin
// verbatim. Responses carry a two digit protocol code in front of the
// body the same way.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrEmptyFrame is returned when a request carries no bytes at all.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrEmptyCommand is returned when the command token before the
	// first space is empty.
	ErrEmptyCommand = errors.New("empty command identifier")
)

// Frame is one parsed request.
type Frame struct {
	Command string
	Payload []byte
}

// Parse splits raw request bytes into a command identifier and payload.
// Everything before the first space is the command; everything after it
// is the payload, untouched. A frame without a space is a command with
// an empty payload.
func Parse(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}

	idx := bytes.IndexByte(data, ' ')
	if idx < 0 {
		return &Frame{Command: string(data)}, nil
	}

	if idx == 0 {
		return nil, ErrEmptyCommand
	}

	return &Frame{
		Command: string(data[:idx]),
		Payload: data[idx+1:],
	}, nil
}

// Encode renders a response frame: the code alone when there is no
// body, otherwise the code, one space and the body.
func Encode(code string, body []byte) []byte {
	if len(body) == 0 {
		return []byte(code)
	}

	out := make([]byte, 0, len(code)+1+len(body))
	out = append(out, code...)
	out = append(out, ' ')
	out = append(out, body...)

	return out
}

// Trace renders the frame for debug logging. Printable payloads are
// shown as text, anything else as hex.
func (f *Frame) Trace() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Command: %s\n", f.Command))

	if len(f.Payload) > 0 {
		if isPrintable(f.Payload) {
			sb.WriteString(fmt.Sprintf("\t[payload]=%s\n", string(f.Payload)))
		} else {
			sb.WriteString(fmt.Sprintf("\t[payload]=%X\n", f.Payload))
		}
	}

	return sb.String()
}

func isPrintable(data []byte) bool {
	for _, b := range data {
		if b > unicode.MaxASCII || (!unicode.IsPrint(rune(b)) && b != '\n' && b != '\t') {
			return false
		}
	}

	return true
}
