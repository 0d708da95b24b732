package sound

import (
	"Courier/internal/pkg/consts"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	state   string
	resumed bool
	played  [][]float64
	playErr error
}

func (s *recordingSink) Play(pcm []float64, _ int) error {
	s.played = append(s.played, pcm)
	return s.playErr
}

func (s *recordingSink) State() string { return s.state }

func (s *recordingSink) Resume() error {
	s.resumed = true
	s.state = StateRunning
	return nil
}

func TestEnginePlayRendersPreset(t *testing.T) {
	sink := &recordingSink{state: StateRunning}
	e := NewEngine(sink, 8000)

	e.Play(consts.SoundMessage, 0.7)

	require.Len(t, sink.played, 1)
	pcm := sink.played[0]
	assert.NotEmpty(t, pcm)

	var peak float64
	for _, v := range pcm {
		if v > peak {
			peak = v
		}
		assert.LessOrEqual(t, v, 1.0)
		assert.GreaterOrEqual(t, v, -1.0)
	}
	assert.Greater(t, peak, 0.1)
}

func TestEnginePresetsDistinct(t *testing.T) {
	sink := &recordingSink{state: StateRunning}
	e := NewEngine(sink, 8000)

	e.Play(consts.SoundMessage, 1)
	e.Play(consts.SoundUrgent, 1)

	require.Len(t, sink.played, 2)
	assert.NotEqual(t, sink.played[0], sink.played[1])
}

func TestEnginePlayUnknownPreset(t *testing.T) {
	sink := &recordingSink{state: StateRunning}
	e := NewEngine(sink, 8000)

	e.Play("nope", 0.7)
	assert.Empty(t, sink.played)
}

func TestEnginePlayZeroVolume(t *testing.T) {
	sink := &recordingSink{state: StateRunning}
	e := NewEngine(sink, 8000)

	e.Play(consts.SoundMessage, 0)
	assert.Empty(t, sink.played)
}

func TestEnginePlayNilSink(t *testing.T) {
	e := NewEngine(nil, 8000)

	assert.NotPanics(t, func() { e.Play(consts.SoundMessage, 0.7) })
	assert.False(t, e.IsSupported())
	assert.Equal(t, StateUnavailable, e.CurrentState())
}

func TestEnginePlayResumesSuspendedSink(t *testing.T) {
	sink := &recordingSink{state: StateSuspended}
	e := NewEngine(sink, 8000)

	e.Play(consts.SoundSoft, 0.5)

	assert.True(t, sink.resumed)
	assert.Len(t, sink.played, 1)
}

func TestEnginePlaySwallowsSinkError(t *testing.T) {
	sink := &recordingSink{state: StateRunning, playErr: errors.New("device busy")}
	e := NewEngine(sink, 8000)

	assert.NotPanics(t, func() { e.Play(consts.SoundMessage, 0.7) })
}

func TestPresetsComplete(t *testing.T) {
	names := Presets()
	for _, want := range []string{
		consts.SoundMessage, consts.SoundGroup, consts.SoundUrgent,
		consts.SoundSoft, consts.SoundSuccess, consts.SoundError,
	} {
		assert.Contains(t, names, want)
	}
}
