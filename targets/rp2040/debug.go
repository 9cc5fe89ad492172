//go:build rp2040

package main

import (
	"machine"

	"sensorslave/core"
)

var debugUART *machine.UART

// InitDebugUART routes core debug output to UART0 on GP0 (TX) / GP1 (RX)
// at 115200 baud. USB carries the command link and stays clean.
func InitDebugUART() {
	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		debugUART = nil
		return
	}

	core.SetDebugWriter(debugWrite)
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
	core.DebugPrintln("=== sensorslave debug UART ===")
}

func debugWrite(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
