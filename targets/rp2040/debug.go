//go:build rp2040

package main

import (
	"machine"

	"servomux/core"
)

// Debug output goes to UART1 on GP8 (TX) and GP9 (RX), keeping the command
// UART clean for the line protocol.
var debugUART = machine.UART1

// InitDebugUART configures UART1 and installs it as the core debug writer
func InitDebugUART(enabled bool) {
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP8,
		RX:       machine.GP9,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(enabled)
	core.InitAsyncDebug()

	core.DebugPrintln("=== servomux debug UART, 115200 baud ===")
}
