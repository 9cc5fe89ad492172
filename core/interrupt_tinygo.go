//go:build tinygo

package core

import "runtime/interrupt"

// irqState is the saved PRIMASK of the current core.
type irqState = interrupt.State

// disableInterrupts masks interrupts on this core. Pair every call with
// restoreInterrupts; sections nest.
func disableInterrupts() irqState {
	return interrupt.Disable()
}

func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}
