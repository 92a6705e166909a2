package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"joyrec/core"
)

const barWidth = 40

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleOn      = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleOff     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	modeStyles   = [...]tcell.Style{
		core.ModeIdle:      tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkGray),
		core.ModeRecording: tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkRed),
		core.ModePlaying:   tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen),
	}
	lineGlyphs = [core.NumLines]string{"UP", "DOWN", "LEFT", "RIGHT", "FIRE"}
)

// viewState is everything one screen shows
type viewState struct {
	frame    core.Frame
	capacity int
	policy   core.OverflowPolicy

	recordLED bool
	playLED   bool
	heartbeat bool
}

// draw renders the whole screen
func draw(s tcell.Screen, v viewState) {
	s.Clear()

	put(s, 0, 0, styleTitle, "joyrec simulator")
	x := put(s, 0, 2, styleDefault, "Mode    ")
	put(s, x, 2, modeStyles[v.frame.Mode], fmt.Sprintf(" %-9s ", v.frame.Mode))

	put(s, 0, 3, styleDefault, fmt.Sprintf("Cursor  %5d / %d  (%s)", v.frame.Index, v.capacity, v.policy))
	drawBar(s, 8, 4, v.frame.Index, v.capacity)

	drawLines(s, 0, 6, "Live    ", v.frame.Live)
	drawLines(s, 0, 7, "Out     ", v.frame.Out)

	x = put(s, 0, 9, styleDefault, "LEDs    ")
	x = drawLED(s, x, 9, "REC", v.recordLED)
	x = drawLED(s, x, 9, "PLAY", v.playLED)
	drawLED(s, x, 9, "HB", v.heartbeat)

	put(s, 0, 11, styleHint, "arrows/WASD move  space fire  r record  p play  q quit")
	s.Show()
}

func drawLines(s tcell.Screen, x, y int, label string, v core.InputVector) {
	x = put(s, x, y, styleDefault, label)
	for i, glyph := range lineGlyphs {
		style := styleOff
		if v.Active(core.Line(i)) {
			style = styleOn
		}
		x = put(s, x, y, style, " "+glyph+" ") + 1
	}
}

func drawLED(s tcell.Screen, x, y int, label string, on bool) int {
	mark := "o"
	style := styleOff
	if on {
		mark = "*"
		style = styleOn
	}
	return put(s, x, y, style, " "+mark+" "+label+" ") + 1
}

func drawBar(s tcell.Screen, x, y, index, capacity int) {
	filled := 0
	if capacity > 0 {
		filled = index * barWidth / capacity
	}
	put(s, x, y, styleDefault, "[")
	for i := 0; i < barWidth; i++ {
		r := '.'
		if i < filled {
			r = '#'
		}
		s.SetContent(x+1+i, y, r, nil, styleDefault)
	}
	put(s, x+1+barWidth, y, styleDefault, "]")
}

// put writes text and returns the column after it
func put(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
