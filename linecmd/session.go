package linecmd

import (
	"io"

	"servomux/core"
	"servomux/errcode"
	"servomux/protocol"
)

// Registers is the register file as seen by a session
type Registers interface {
	Read(addr uint8) uint8
	Write(addr uint8, value uint8) error
	Lookup(addr uint8) (*core.Register, bool)
	Halted() bool
}

// Session runs the parser over a byte stream and executes complete lines
// against a register file, writing one reply line per command.
type Session struct {
	parser *Parser
	regs   Registers
	out    io.Writer
	reply  protocol.ScratchOutput
	input  *protocol.FifoBuffer
	ready  chan struct{}
}

// NewSession binds a parser to regs, replying on out
func NewSession(regs Registers, out io.Writer) *Session {
	return &Session{
		parser: NewParser(),
		regs:   regs,
		out:    out,
		ready:  make(chan struct{}, 1),
	}
}

// Attach makes fifo the session input. The fifo's producer signals Ready
// when data arrives in an empty queue; the consumer then calls Poll.
func (s *Session) Attach(fifo *protocol.FifoBuffer) {
	s.input = fifo
	fifo.SetNotify(s.signal)
}

func (s *Session) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when the attached queue becomes non-empty
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Poll processes everything queued in the attached fifo
func (s *Session) Poll() {
	if s.input == nil {
		return
	}
	for !s.input.IsEmpty() {
		s.Receive(s.input)
	}
}

// Receive processes all data in input and pops it
func (s *Session) Receive(input protocol.InputBuffer) {
	data := input.Data()
	for _, b := range data {
		s.Feed(b)
	}
	input.Pop(len(data))
}

// Feed processes a single byte
func (s *Session) Feed(b byte) {
	cmd, done, err := s.parser.Feed(b)
	if err != nil {
		s.replyError(err)
		return
	}
	if done {
		s.execute(cmd)
	}
}

// Hello writes the start-up banner
func (s *Session) Hello() {
	s.reply.Reset()
	s.reply.OutputString("servomux " + protocol.Version + protocol.LineEnd)
	s.flush()
}

// Parser returns the session's parser
func (s *Session) Parser() *Parser {
	return s.parser
}

func (s *Session) execute(cmd Command) {
	if s.regs.Halted() {
		s.replyError(errcode.Halted)
		return
	}

	switch cmd.Op {
	case OpGet:
		if _, ok := s.regs.Lookup(cmd.Register); !ok {
			s.replyError(&errcode.E{C: errcode.UnrecognizedAddress, Op: "get", Msg: core.Utoa(uint32(cmd.Register))})
			return
		}
		value := s.regs.Read(cmd.Register)
		s.reply.Reset()
		s.reply.OutputString(core.Utoa(uint32(cmd.Register)) + "=" + core.Utoa(uint32(value)) + protocol.LineEnd)
		s.flush()

	case OpModify:
		value, err := ParseValue(cmd.Params)
		if err != nil {
			s.replyError(err)
			return
		}
		if err := s.regs.Write(cmd.Register, value); err != nil {
			s.replyError(err)
			return
		}
		s.reply.Reset()
		s.reply.OutputString(protocol.ReplyOK + protocol.LineEnd)
		s.flush()
	}
}

func (s *Session) replyError(err error) {
	core.DebugAsync("[LINE] " + err.Error())
	s.reply.Reset()
	s.reply.OutputString(protocol.ReplyError + string(errcode.Of(err)) + protocol.LineEnd)
	s.flush()
}

func (s *Session) flush() {
	_, _ = s.out.Write(s.reply.Result())
}
