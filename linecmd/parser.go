// Package linecmd implements the text command front-end of the register
// interface: "G<reg>" reads a register, "M<reg> <value>" writes one.
package linecmd

import (
	"servomux/errcode"
	"servomux/protocol"
)

// State is the parser position within a command line
type State uint8

const (
	StateAddress State = iota
	StateRegister
	StateParameters
)

func (s State) String() string {
	switch s {
	case StateAddress:
		return "address"
	case StateRegister:
		return "register"
	case StateParameters:
		return "parameters"
	default:
		return "unknown"
	}
}

// Command families
const (
	OpGet    byte = 'G'
	OpModify byte = 'M'
)

const maxRegisterDigits = 3

// Command is one complete line. Params aliases the parser buffer and is
// only valid until the next Feed.
type Command struct {
	Op       byte
	Register uint8
	Params   []byte
}

// Parser is a byte-at-a-time command line state machine. It never
// allocates, so it can run straight off a receive queue on the device.
type Parser struct {
	state   State
	op      byte
	reg     uint16
	digits  uint8
	params  [protocol.ParamMax]byte
	nparams int
	fail    errcode.Code
}

// NewParser creates a parser waiting for a command letter
func NewParser() *Parser {
	p := &Parser{}
	p.Reset()
	return p
}

// Reset discards any partial line
func (p *Parser) Reset() {
	p.state = StateAddress
	p.op = 0
	p.reg = 0
	p.digits = 0
	p.nparams = 0
	p.fail = ""
}

// State returns the current parser state
func (p *Parser) State() State {
	return p.state
}

// Feed consumes one byte. done is true when b completed a line; cmd is
// then valid if err is nil. A non-nil err with done false reports a
// rejected command letter, after which the parser keeps waiting.
func (p *Parser) Feed(b byte) (cmd Command, done bool, err error) {
	if b == protocol.CtrlC {
		p.Reset()
		return Command{}, false, nil
	}

	switch p.state {
	case StateAddress:
		switch toUpper(b) {
		case OpGet, OpModify:
			p.Reset()
			p.op = toUpper(b)
			p.state = StateRegister
		case protocol.CR, protocol.LF, ' ', '\t':
		default:
			return Command{}, false, &errcode.E{C: errcode.UnrecognizedCommand, Op: "parse", Msg: quoteByte(b)}
		}

	case StateRegister:
		if isDigit(b) {
			p.reg = p.reg*10 + uint16(b-'0')
			p.digits++
			if p.digits > maxRegisterDigits || p.reg > 0xFF {
				p.failLine(errcode.UnrecognizedAddress)
			}
			return Command{}, false, nil
		}
		if p.digits == 0 {
			p.failLine(errcode.UnrecognizedAddress)
		}
		if protocol.IsLineEnd(b) {
			return p.finish()
		}
		p.state = StateParameters

	case StateParameters:
		if protocol.IsLineEnd(b) {
			return p.finish()
		}
		if p.nparams == len(p.params) {
			p.failLine(errcode.LineTooLong)
			return Command{}, false, nil
		}
		p.params[p.nparams] = b
		p.nparams++
	}

	return Command{}, false, nil
}

// failLine marks the rest of the line as rejected. The first failure wins.
func (p *Parser) failLine(c errcode.Code) {
	if p.fail == "" {
		p.fail = c
	}
	p.state = StateParameters
}

func (p *Parser) finish() (Command, bool, error) {
	cmd := Command{Op: p.op, Register: uint8(p.reg), Params: p.params[:p.nparams]}
	fail := p.fail
	p.state = StateAddress
	p.fail = ""
	if fail != "" {
		return Command{}, true, fail
	}
	return cmd, true, nil
}

// ParseValue parses the decimal byte value of a modify command, ignoring
// surrounding blanks.
func ParseValue(params []byte) (uint8, error) {
	params = trimBlanks(params)
	if len(params) == 0 || len(params) > 3 {
		return 0, errcode.InvalidValue
	}
	v := 0
	for _, c := range params {
		if !isDigit(c) {
			return 0, errcode.InvalidValue
		}
		v = v*10 + int(c-'0')
	}
	if v > 0xFF {
		return 0, errcode.InvalidValue
	}
	return uint8(v), nil
}

func trimBlanks(b []byte) []byte {
	for len(b) > 0 && isBlank(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isBlank(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func quoteByte(b byte) string {
	if b >= 0x20 && b < 0x7F {
		return "'" + string(rune(b)) + "'"
	}
	const digits = "0123456789abcdef"
	return string([]byte{'0', 'x', digits[b>>4], digits[b&0x0f]})
}
