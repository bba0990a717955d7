package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
)

var (
	colorBackground = tcell.NewRGBColor(0x12, 0x12, 0x12)
	colorPanel      = tcell.NewRGBColor(0x1E, 0x1E, 0x1E)
	colorText       = tcell.NewRGBColor(0xE0, 0xE0, 0xE0)
	colorAccent     = tcell.NewRGBColor(0x4A, 0x90, 0xE2)
	colorAlert      = tcell.NewRGBColor(0xFF, 0x55, 0x55)
	colorLanding    = tcell.NewRGBColor(0x55, 0xFF, 0x55)

	styleBase   = tcell.StyleDefault.Background(colorBackground).Foreground(colorText)
	styleTitle  = styleBase.Foreground(colorAccent).Bold(true)
	styleInput  = tcell.StyleDefault.Background(colorPanel).Foreground(colorText)
	styleFocus  = styleInput.Foreground(colorAccent).Reverse(true)
	styleError  = styleBase.Foreground(colorAlert).Bold(true)
	styleHelp   = styleBase.Dim(true)
	styleBar    = styleBase.Background(colorAccent)
	styleBarBg  = styleBase.Background(colorPanel)
	styleAlert  = styleBase.Foreground(colorAlert).Bold(true)
	styleLanded = styleBase.Foreground(colorLanding).Bold(true)
)

const (
	labelWidth = 32
	inputWidth = 16
	barWidth   = 50
)

func (a *App) draw() {
	a.screen.SetStyle(styleBase)
	a.screen.Clear()

	y := 0
	a.text(1, y, styleTitle, "EVE TICK BOMB CALCULATOR")
	y += 2

	for i, f := range a.fields {
		a.text(1, y, styleBase, f.label+":")
		style := styleInput
		if i == a.focus {
			style = styleFocus
		}
		a.fill(1+labelWidth, y, inputWidth, style)
		a.text(1+labelWidth, y, style, f.String())
		if i == a.focus {
			a.screen.ShowCursor(1+labelWidth+f.cursor, y)
		}
		y++
	}
	y++
	a.text(1, y, styleHelp, "Enter: calculate  Ctrl+S: start/resume  Ctrl+X: stop  Ctrl+R: reset  Esc: quit")
	y += 2

	if a.errMsg != "" {
		a.text(1, y, styleError, a.errMsg)
		y += 2
	}

	for _, s := range a.sections {
		a.text(1, y, styleTitle, s.Title)
		y++
		for _, line := range s.Lines {
			style := styleBase
			if strings.HasPrefix(line, "WARNING:") {
				style = styleError
			}
			a.text(3, y, style, line)
			y++
		}
		y++
	}

	if a.cd != nil {
		a.drawCountdown(y)
	} else if a.status != "" {
		a.text(1, y, styleHelp, a.status)
	}

	a.screen.Show()
}

func (a *App) drawCountdown(y int) {
	a.text(1, y, styleTitle, "COUNTDOWN TO LAUNCH")
	y++
	a.text(3, y, styleBase.Bold(true), a.last.Display)
	a.text(14, y, styleHelp, fmt.Sprintf("[%s]", a.cd.State()))
	y++

	filled := int(a.last.Progress * barWidth)
	a.fill(3, y, barWidth, styleBarBg)
	a.fill(3, y, filled, styleBar)
	a.text(3+barWidth+1, y, styleBase, fmt.Sprintf("%3.0f%%", a.last.Progress*100))
	y += 2

	style := styleBase
	switch a.alert {
	case countdown.KindAlign, countdown.KindLaunch:
		style = styleAlert
	case countdown.KindLanding:
		style = styleLanded
	}
	a.text(3, y, style, a.status)
}

func (a *App) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (a *App) fill(x, y, n int, style tcell.Style) {
	for i := 0; i < n; i++ {
		a.screen.SetContent(x+i, y, ' ', nil, style)
	}
}
