package core

// Mode is the recorder operating mode. Exactly one mode is active at a time.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeRecording
	ModePlaying

	numModes = 3
)

var modeNames = [numModes]string{"idle", "recording", "playing"}

// String returns the mode name
func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return "mode" + itoa(int(m))
}

// Valid reports whether m is one of the defined modes
func (m Mode) Valid() bool {
	return m < numModes
}

// ModeNames returns the mode names indexed by mode value
func ModeNames() []string {
	names := make([]string, numModes)
	copy(names, modeNames[:])
	return names
}

// toggleMode returns the mode reached when the button for target is pressed
// while in current. Pressing the button of the active mode returns to idle,
// any other press switches straight to the target mode.
func toggleMode(current, target Mode) Mode {
	if current == target {
		return ModeIdle
	}
	return target
}
