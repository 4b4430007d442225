package protocol

import "sync/atomic"

// InputBuffer provides an abstraction for reading incoming line data
type InputBuffer interface {
	// Data returns the available data slice
	Data() []byte

	// Available returns the number of bytes available
	Available() int

	// Pop removes n bytes from the front of the buffer
	Pop(n int)
}

// OutputBuffer provides an abstraction for writing outgoing replies
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

// SliceInputBuffer implements InputBuffer using a byte slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer.
// Writes past the end are truncated.
type ScratchOutput struct {
	buf [ReplyMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

// OutputString is Output for string data, without the conversion
func (s *ScratchOutput) OutputString(data string) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a single-producer single-consumer ring for serial input.
// The producer (usually the UART receive interrupt) calls Write; the
// consumer calls Read, Data, Pop and Reset. Each side only stores its own
// index, so no lock is needed.
type FifoBuffer struct {
	buf    []byte
	size   uint32
	read   atomic.Uint32
	write  atomic.Uint32
	notify func()
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity. One
// slot is kept free to tell a full ring from an empty one.
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: uint32(capacity),
	}
}

// SetNotify installs a callback run by the producer when the buffer goes
// from empty to non-empty. With a producer running in parallel it may also
// fire for a write that raced a drain, so the consumer must treat it as a
// hint and tolerate finding the queue empty. It runs in producer context
// and must not block.
func (f *FifoBuffer) SetNotify(fn func()) {
	f.notify = fn
}

// Write appends data to the FIFO buffer and returns the number of bytes
// stored. Bytes that do not fit are dropped.
func (f *FifoBuffer) Write(data []byte) int {
	start := f.write.Load()
	r := f.read.Load()
	w := start

	written := 0
	for _, b := range data {
		next := (w + 1) % f.size
		if next == r {
			// Buffer full
			break
		}
		f.buf[w] = b
		w = next
		written++
	}
	if written == 0 {
		return 0
	}
	f.write.Store(w)

	// The consumer may have drained up to start after r was loaded, and
	// stopped polling before the store above. Notify whenever the read
	// index sat at start, so those bytes are never stranded.
	if f.notify != nil && (r == start || f.read.Load() == start) {
		f.notify()
	}
	return written
}

// WriteByte appends one byte; it fails only when the ring is full
func (f *FifoBuffer) WriteByte(b byte) error {
	if f.Write([]byte{b}) == 0 {
		return errFull
	}
	return nil
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	r := f.read.Load()
	w := f.write.Load()

	read := 0
	for i := range data {
		if r == w {
			// Buffer empty
			break
		}
		data[i] = f.buf[r]
		r = (r + 1) % f.size
		read++
	}
	f.read.Store(r)
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	r := f.read.Load()
	w := f.write.Load()
	return int((w + f.size - r) % f.size)
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return int(f.size) - f.Available() - 1
}

// Data returns available data as a slice.
// When wrapped, this copies data into a contiguous slice.
func (f *FifoBuffer) Data() []byte {
	r := f.read.Load()
	w := f.write.Load()
	if r <= w {
		return f.buf[r:w]
	}

	result := make([]byte, f.size-r+w)
	n := copy(result, f.buf[r:])
	copy(result[n:], f.buf[:w])
	return result
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if avail := f.Available(); n > avail {
		n = avail
	}
	if n <= 0 {
		return
	}
	f.read.Store((f.read.Load() + uint32(n)) % f.size)
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read.Load() == f.write.Load()
}

// Reset discards everything queued. Consumer side only.
func (f *FifoBuffer) Reset() {
	f.read.Store(f.write.Load())
}

type fifoError string

func (e fifoError) Error() string { return string(e) }

const errFull = fifoError("fifo full")
