//go:build !tinygo

package core

import "sync"

type irqState struct{}

// irqMu serializes the simulated interrupt handler against foreground
// critical sections. It does not nest, so core code never holds a section
// while calling out.
var irqMu sync.Mutex

func disableInterrupts() irqState {
	irqMu.Lock()
	return irqState{}
}

func restoreInterrupts(irqState) {
	irqMu.Unlock()
}
