package tui

import (
	"fmt"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// Field indexes.
const (
	fieldDistance = iota
	fieldWarpSpeed
	fieldSubwarpSpeed
	fieldDetonation
	fieldAlignAlert
	fieldBombAlert
	numFields
)

// field is a single-line text input.
type field struct {
	label  string
	value  []rune
	cursor int
}

func newField(label, value string) *field {
	v := []rune(value)
	return &field{label: label, value: v, cursor: len(v)}
}

func (f *field) String() string { return string(f.value) }

func (f *field) insert(r rune) {
	f.value = append(f.value, 0)
	copy(f.value[f.cursor+1:], f.value[f.cursor:])
	f.value[f.cursor] = r
	f.cursor++
}

func (f *field) backspace() {
	if f.cursor == 0 {
		return
	}
	f.value = append(f.value[:f.cursor-1], f.value[f.cursor:]...)
	f.cursor--
}

func (f *field) delete() {
	if f.cursor >= len(f.value) {
		return
	}
	f.value = append(f.value[:f.cursor], f.value[f.cursor+1:]...)
}

func (f *field) left() {
	if f.cursor > 0 {
		f.cursor--
	}
}

func (f *field) right() {
	if f.cursor < len(f.value) {
		f.cursor++
	}
}

func (f *field) clear() {
	f.value = f.value[:0]
	f.cursor = 0
}

func defaultFields() []*field {
	return []*field{
		fieldDistance:     newField("Warp Distance (AU)", "1.0"),
		fieldWarpSpeed:    newField("Warp Speed (AU/s)", "5.0"),
		fieldSubwarpSpeed: newField("Sub Warp Speed (m/s)", "200"),
		fieldDetonation:   newField("Bomb Detonation Time (s)", "5.0"),
		fieldAlignAlert:   newField("Align Alert (s before launch)", "3.0"),
		fieldBombAlert:    newField("Bomb Alert (s before launch)", "1.0"),
	}
}

// readForm parses every field. The four model inputs go through
// warp.ParseInput; the alert thresholds must be non-negative numbers.
func readForm(fields []*field) (warp.Input, countdown.Alerts, error) {
	in, err := warp.ParseInput(
		fields[fieldDistance].String(),
		fields[fieldWarpSpeed].String(),
		fields[fieldSubwarpSpeed].String(),
		fields[fieldDetonation].String(),
	)
	if err != nil {
		return warp.Input{}, countdown.Alerts{}, err
	}

	align, err := warp.ParseNumber(fields[fieldAlignAlert].String())
	if err != nil {
		return warp.Input{}, countdown.Alerts{}, fmt.Errorf("align alert: %w", err)
	}
	bomb, err := warp.ParseNumber(fields[fieldBombAlert].String())
	if err != nil {
		return warp.Input{}, countdown.Alerts{}, fmt.Errorf("bomb alert: %w", err)
	}
	if align < 0 || bomb < 0 {
		return warp.Input{}, countdown.Alerts{}, fmt.Errorf("alert thresholds must not be negative")
	}
	return in, countdown.Alerts{Align: align, Bomb: bomb}, nil
}
