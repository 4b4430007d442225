package sim

import (
	"io"

	"servomux/config"
)

// Port is an in-memory serial port wired to a simulated device. Writes are
// fed to the device's line session; reads return its replies.
type Port struct {
	dev *Device
	r   *io.PipeReader
	w   *io.PipeWriter
}

// NewPort builds a device from cfg behind a serial port. Replies block
// until they are read, so keep a reader running while writing.
func NewPort(cfg *config.DeviceConfig) (*Port, error) {
	r, w := io.Pipe()
	dev, err := New(cfg, w)
	if err != nil {
		return nil, err
	}
	return &Port{dev: dev, r: r, w: w}, nil
}

// Device returns the simulated controller behind the port
func (p *Port) Device() *Device {
	return p.dev
}

func (p *Port) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	p.dev.Feed(b)
	return len(b), nil
}

// Flush is a no-op; nothing is buffered on the device side
func (p *Port) Flush() error {
	return nil
}

func (p *Port) Close() error {
	p.w.Close()
	return p.r.Close()
}
