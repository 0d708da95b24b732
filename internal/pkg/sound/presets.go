package sound

import (
	"Courier/internal/pkg/consts"
	"time"
)

// Waveform 振荡器波形
type Waveform string

const (
	WaveSine     Waveform = "sine"
	WaveSquare   Waveform = "square"
	WaveSawtooth Waveform = "sawtooth"
)

// Tone 单个音符：频率、时长、增益、波形与相对起始时刻
type Tone struct {
	Freq     float64
	Duration time.Duration
	Gain     float64
	Wave     Waveform
	Delay    time.Duration
}

// presets 预设音序表，每个预设总时长控制在 1 秒以内且彼此可听辨
var presets = map[string][]Tone{
	consts.SoundMessage: {
		{Freq: 800, Duration: 150 * time.Millisecond, Gain: 0.8, Wave: WaveSine, Delay: 0},
		{Freq: 1000, Duration: 150 * time.Millisecond, Gain: 0.8, Wave: WaveSine, Delay: 100 * time.Millisecond},
	},
	consts.SoundGroup: {
		{Freq: 600, Duration: 120 * time.Millisecond, Gain: 0.7, Wave: WaveSine, Delay: 0},
		{Freq: 800, Duration: 120 * time.Millisecond, Gain: 0.7, Wave: WaveSine, Delay: 130 * time.Millisecond},
		{Freq: 1000, Duration: 120 * time.Millisecond, Gain: 0.7, Wave: WaveSine, Delay: 260 * time.Millisecond},
	},
	consts.SoundUrgent: {
		{Freq: 1200, Duration: 150 * time.Millisecond, Gain: 0.9, Wave: WaveSquare, Delay: 0},
		{Freq: 1200, Duration: 150 * time.Millisecond, Gain: 0.9, Wave: WaveSquare, Delay: 200 * time.Millisecond},
		{Freq: 1200, Duration: 150 * time.Millisecond, Gain: 0.9, Wave: WaveSquare, Delay: 400 * time.Millisecond},
	},
	consts.SoundSoft: {
		{Freq: 500, Duration: 200 * time.Millisecond, Gain: 0.5, Wave: WaveSine, Delay: 0},
	},
	consts.SoundSuccess: {
		{Freq: 523.25, Duration: 300 * time.Millisecond, Gain: 0.6, Wave: WaveSine, Delay: 0},
		{Freq: 659.25, Duration: 300 * time.Millisecond, Gain: 0.6, Wave: WaveSine, Delay: 80 * time.Millisecond},
		{Freq: 783.99, Duration: 300 * time.Millisecond, Gain: 0.6, Wave: WaveSine, Delay: 160 * time.Millisecond},
	},
	consts.SoundError: {
		{Freq: 400, Duration: 180 * time.Millisecond, Gain: 0.7, Wave: WaveSawtooth, Delay: 0},
		{Freq: 300, Duration: 180 * time.Millisecond, Gain: 0.7, Wave: WaveSawtooth, Delay: 200 * time.Millisecond},
	},
}

// Presets 返回全部预设名
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
