//go:build rp2040 || rp2350

package main

import (
	"image/color"
	"machine"

	"joyrec/core"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/st7735"
)

// ST7735 80x160 panel on SPI1
const (
	displaySCK = machine.GPIO26
	displaySDO = machine.GPIO27
	displayCS  = machine.GPIO17
	displayDC  = machine.GPIO16
	displayRST = machine.GPIO21
	displayBL  = machine.GPIO22
)

// Layout on the rotated 160x80 panel
const (
	bandHeight = 20
	lineY      = 28
	lineSize   = 22
	lineStride = 30
	barX       = 5
	barY       = 60
	barWidth   = 150
	barHeight  = 12
)

var (
	colorOff   = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF}
	colorOn    = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorBar   = color.RGBA{R: 0x30, G: 0x90, B: 0xFF, A: 0xFF}
	modeColors = [...]color.RGBA{
		core.ModeIdle:      {R: 0x40, G: 0x40, B: 0x40, A: 0xFF},
		core.ModeRecording: {R: 0xE0, G: 0x10, B: 0x10, A: 0xFF},
		core.ModePlaying:   {R: 0x10, G: 0xC0, B: 0x30, A: 0xFF},
	}
)

// StatusDisplay shows the mode, the driven lines and the cursor position.
// Only what changed since the last frame is redrawn.
type StatusDisplay struct {
	dev      st7735.Device
	capacity int

	drawn bool
	mode  core.Mode
	out   core.InputVector
	fill  int16
}

// NewStatusDisplay brings up the panel
func NewStatusDisplay(capacity int) *StatusDisplay {
	machine.SPI1.Configure(machine.SPIConfig{
		Frequency: 16000000,
		SCK:       displaySCK,
		SDO:       displaySDO,
	})

	s := &StatusDisplay{
		dev:      st7735.New(machine.SPI1, displayRST, displayDC, displayCS, displayBL),
		capacity: capacity,
	}
	s.dev.Configure(st7735.Config{
		Model:    st7735.MINI80x160,
		Rotation: drivers.Rotation90,
	})
	s.dev.FillScreen(color.RGBA{A: 0xFF})
	return s
}

// Update draws one recorder frame
func (s *StatusDisplay) Update(f core.Frame) {
	if !s.drawn || f.Mode != s.mode {
		s.dev.FillRectangle(0, 0, barX*2+barWidth, bandHeight, modeColors[f.Mode])
		s.mode = f.Mode
	}

	if !s.drawn || f.Out != s.out {
		for i := 0; i < core.NumLines; i++ {
			c := colorOff
			if f.Out.Active(core.Line(i)) {
				c = colorOn
			}
			s.dev.FillRectangle(int16(barX+i*lineStride), lineY, lineSize, lineSize, c)
		}
		s.out = f.Out
	}

	fill := int16(0)
	if s.capacity > 0 {
		fill = int16(f.Index * barWidth / s.capacity)
	}
	if !s.drawn || fill != s.fill {
		if fill > 0 {
			s.dev.FillRectangle(barX, barY, fill, barHeight, colorBar)
		}
		if fill < barWidth {
			s.dev.FillRectangle(barX+fill, barY, barWidth-fill, barHeight, colorOff)
		}
		s.fill = fill
	}

	s.drawn = true
}
