// Package link is the host side of the line protocol: it sends G/M
// commands to the controller over a serial port and matches the replies.
package link

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"servomux/errcode"
	"servomux/protocol"
)

// DefaultTimeout bounds the wait for one reply
const DefaultTimeout = 500 * time.Millisecond

// Link is a command connection to one controller. Commands are serialised;
// one is outstanding at a time.
type Link struct {
	port    io.ReadWriteCloser
	timeout time.Duration

	// Receive side, owned by readLoop
	input *protocol.FifoBuffer
	lines chan string

	// Unmatched lines (banner, debug output) go here when set
	unsolicited func(string)

	cmdMutex sync.Mutex

	stopChan chan struct{}
	doneChan chan struct{}
	readErr  error
}

// Open wraps port and starts the reader. The controller's parser is reset
// with a Ctrl-C so a half-typed line from an earlier session is dropped.
func Open(port io.ReadWriteCloser) (*Link, error) {
	l := &Link{
		port:     port,
		timeout:  DefaultTimeout,
		input:    protocol.NewFifoBuffer(256),
		lines:    make(chan string, 16),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	go l.readLoop()

	if _, err := port.Write([]byte{protocol.CtrlC}); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to reset parser: %w", err)
	}
	return l, nil
}

// SetTimeout changes the reply timeout
func (l *Link) SetTimeout(d time.Duration) {
	l.timeout = d
}

// SetUnsolicitedHandler receives lines that are not replies to a command
func (l *Link) SetUnsolicitedHandler(fn func(string)) {
	l.cmdMutex.Lock()
	l.unsolicited = fn
	l.cmdMutex.Unlock()
}

// Get reads register reg
func (l *Link) Get(reg uint8) (uint8, error) {
	prefix := strconv.Itoa(int(reg)) + "="
	line, err := l.roundTrip("G"+strconv.Itoa(int(reg))+"\r", func(s string) bool {
		return strings.HasPrefix(s, prefix)
	})
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(line, prefix), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("malformed reply %q: %w", line, err)
	}
	return uint8(v), nil
}

// Set writes value into register reg
func (l *Link) Set(reg, value uint8) error {
	cmd := "M" + strconv.Itoa(int(reg)) + " " + strconv.Itoa(int(value)) + "\r"
	_, err := l.roundTrip(cmd, func(s string) bool { return s == protocol.ReplyOK })
	return err
}

// Tx implements drivers.I2C over the line protocol so bus-level drivers
// can run across the serial link: a [reg, value] write is Set, a [reg]
// write with a one-byte read is Get. addr is ignored.
func (l *Link) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) == 2 && len(r) == 0:
		return l.Set(w[0], w[1])
	case len(w) == 1 && len(r) == 1:
		v, err := l.Get(w[0])
		if err != nil {
			return err
		}
		r[0] = v
		return nil
	default:
		return fmt.Errorf("unsupported transaction: write %d, read %d", len(w), len(r))
	}
}

// roundTrip sends cmd and waits for the first line accepted by match or
// an error reply.
func (l *Link) roundTrip(cmd string, match func(string) bool) (string, error) {
	l.cmdMutex.Lock()
	defer l.cmdMutex.Unlock()

	// Drop replies left over from a timed-out command
	for len(l.lines) > 0 {
		l.dispatchUnsolicited(<-l.lines)
	}

	if _, err := io.WriteString(l.port, cmd); err != nil {
		return "", fmt.Errorf("failed to write command: %w", err)
	}

	deadline := time.After(l.timeout)
	for {
		select {
		case line := <-l.lines:
			if match(line) {
				return line, nil
			}
			if strings.HasPrefix(line, protocol.ReplyError) {
				code := errcode.Code(strings.TrimPrefix(line, protocol.ReplyError))
				return "", &errcode.E{C: code, Op: strings.TrimSpace(cmd)}
			}
			l.dispatchUnsolicited(line)

		case <-deadline:
			return "", &errcode.E{C: errcode.Timeout, Op: strings.TrimSpace(cmd), Msg: l.timeout.String()}

		case <-l.doneChan:
			if l.readErr != nil {
				return "", fmt.Errorf("link closed: %w", l.readErr)
			}
			return "", fmt.Errorf("link closed")
		}
	}
}

func (l *Link) dispatchUnsolicited(line string) {
	if l.unsolicited != nil {
		l.unsolicited(line)
	}
}

// readLoop reads from the port and splits the stream into lines
func (l *Link) readLoop() {
	defer close(l.doneChan)

	buffer := make([]byte, 64)
	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		n, err := l.port.Read(buffer)
		if n > 0 {
			l.input.Write(buffer[:n])
			l.splitLines()
		}
		if err != nil {
			if l.stopped() {
				return
			}
			// A read timeout surfaces as io.EOF from the native port
			if err != io.EOF {
				l.readErr = err
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (l *Link) stopped() bool {
	select {
	case <-l.stopChan:
		return true
	default:
		return false
	}
}

func (l *Link) splitLines() {
	data := l.input.Data()
	consumed := 0
	for i, b := range data {
		if !protocol.IsLineEnd(b) {
			continue
		}
		line := strings.TrimSpace(string(data[consumed:i]))
		consumed = i + 1
		if line == "" {
			continue
		}
		select {
		case l.lines <- line:
		case <-l.stopChan:
			return
		}
	}
	l.input.Pop(consumed)

	// A line longer than the buffer cannot be a reply
	if l.input.Free() == 0 {
		l.input.Reset()
	}
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	select {
	case <-l.stopChan:
		return nil
	default:
	}
	close(l.stopChan)
	err := l.port.Close()
	<-l.doneChan
	return err
}
