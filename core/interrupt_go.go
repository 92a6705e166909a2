//go:build !tinygo

package core

// State stands in for the saved interrupt mask on hosted builds
type State uintptr

// disableInterrupts is a no-op on hosted builds; the scheduler is only
// driven from a single goroutine there
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on hosted builds
func restoreInterrupts(State) {}
