package core

import "time"

// TimerFreq is the system timer frequency (1 MHz microsecond counter)
const TimerFreq = 1000000

var (
	uptimeHigh uint32 // Wrap count of the 32-bit tick counter
	lastTicks  uint32 // Last value passed to SetTime
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration).
// A value lower than the previous one is taken as a counter wrap.
func SetTime(ticks uint32) {
	state := disableInterrupts()
	if ticks < lastTicks {
		uptimeHigh++
	}
	lastTicks = ticks
	restoreInterrupts(state)
	setSystemTicks(ticks)
}

// GetUptime returns 64-bit uptime in timer ticks
func GetUptime() uint64 {
	state := disableInterrupts()
	high := uptimeHigh
	restoreInterrupts(state)
	return uint64(high)<<32 | uint64(GetTime())
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerFromDuration converts a duration to timer ticks, wrapping like the
// 32-bit hardware counter
func TimerFromDuration(d time.Duration) uint32 {
	return uint32(uint64(d / (time.Second / TimerFreq)))
}

// TicksToDuration converts timer ticks to a duration
func TicksToDuration(ticks uint32) time.Duration {
	return time.Duration(uint64(ticks) * uint64(time.Second) / TimerFreq)
}

// TimerInit resets the system timer bookkeeping
func TimerInit() {
	state := disableInterrupts()
	uptimeHigh = 0
	lastTicks = 0
	timerList = nil
	restoreInterrupts(state)
	setSystemTicks(0)
}

// ProcessTimers processes scheduled timers
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
