//go:build rp2040

package main

import (
	"machine"
	"time"

	"servomux/protocol"
)

// Command UART: UART0 on GP0 (TX) and GP1 (RX)
var cmdUART = machine.UART0

// InitUART configures the command UART
func InitUART(baud uint32) error {
	return cmdUART.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
}

// uartReaderLoop moves received bytes into input. The UART driver already
// buffers in its receive interrupt; this goroutine is the single producer
// of input.
func uartReaderLoop(input *protocol.FifoBuffer) {
	for {
		for cmdUART.Buffered() > 0 {
			b, err := cmdUART.ReadByte()
			if err != nil {
				break
			}
			if input.WriteByte(b) != nil {
				uartOverruns++
			}
		}
		// Yield to avoid a busy loop
		time.Sleep(200 * time.Microsecond)
	}
}

var uartOverruns uint32
