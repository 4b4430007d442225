// Package protocol holds the byte plumbing shared by the line command
// front-ends: framing constants, the serial receive queue and the reply
// scratch buffer.
package protocol

// Version is the firmware version reported by the host tools
const Version = "0.1.0"

// Line framing
const (
	CtrlC = 0x03 // aborts the line being parsed
	CR    = '\r'
	LF    = '\n'

	// LineEnd terminates every reply
	LineEnd = "\r\n"

	// ParamMax bounds the parameter text of one command
	ParamMax = 32

	// ReplyMax bounds one reply line, terminator included
	ReplyMax = 64
)

// Reply prefixes
const (
	ReplyOK    = "ok"
	ReplyError = "error: "
)

// IsLineEnd reports whether b terminates a command line
func IsLineEnd(b byte) bool {
	return b == CR || b == LF
}
