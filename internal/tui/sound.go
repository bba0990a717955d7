package tui

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
)

// Sounder plays the audible cue for an alert event.
type Sounder interface {
	Play(kind countdown.Kind)
	Close()
}

// Silent is a Sounder that does nothing.
type Silent struct{}

func (Silent) Play(countdown.Kind) {}
func (Silent) Close() {}

const sampleRate = beep.SampleRate(44100)

type tone struct {
	freq     float64
	duration time.Duration
}

var tones = map[countdown.Kind]tone{
	countdown.KindAlign:   {880, 200 * time.Millisecond},
	countdown.KindLaunch:  {1320, 400 * time.Millisecond},
	countdown.KindLanding: {660, 600 * time.Millisecond},
}

// speakerSounder plays sine tones through the default audio device.
type speakerSounder struct{}

// NewSpeaker initialises the audio device. Callers fall back to Silent when
// it fails; the countdown works without sound.
func NewSpeaker() (Sounder, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return speakerSounder{}, nil
}

func (speakerSounder) Play(kind countdown.Kind) {
	t, ok := tones[kind]
	if !ok {
		return
	}
	sine, err := generators.SineTone(sampleRate, t.freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(t.duration), sine))
}

func (speakerSounder) Close() {
	speaker.Close()
}
