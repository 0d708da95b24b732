package sound

import (
	"encoding/binary"
	"io"
	log "log/slog"
	"math"
	"sync"
	"time"
)

// 播放设备状态
const (
	StateRunning     = "running"
	StateSuspended   = "suspended"
	StateUnavailable = "unavailable"
)

const defaultSampleRate = 44100

// Sink 播放设备抽象，由上层注入；测试与嵌入方可自行实现
type Sink interface {
	Play(pcm []float64, sampleRate int) error
	State() string
	Resume() error
}

// Engine 提示音合成器，不依赖外部音频素材
// 设备缺失或挂起时所有调用静默降级，绝不向调用方抛错
type Engine struct {
	mu         sync.Mutex
	sink       Sink
	sampleRate int
}

func NewEngine(sink Sink, sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Engine{sink: sink, sampleRate: sampleRate}
}

// Play 按预设名播放提示音，volume 取值 0~1
func (e *Engine) Play(preset string, volume float64) {
	tones, ok := presets[preset]
	if !ok {
		log.Warn("未知提示音预设", "preset", preset)
		return
	}
	if volume <= 0 {
		return
	}
	if volume > 1 {
		volume = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink == nil {
		return
	}
	if e.sink.State() == StateSuspended {
		if err := e.sink.Resume(); err != nil {
			log.Debug("音频设备恢复失败，跳过本次播放", "err", err)
			return
		}
	}

	pcm := render(tones, volume, e.sampleRate)
	if err := e.sink.Play(pcm, e.sampleRate); err != nil {
		log.Debug("提示音播放失败", "preset", preset, "err", err)
	}
}

// IsSupported 是否存在可用播放设备
func (e *Engine) IsSupported() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink != nil
}

// CurrentState 当前设备状态
func (e *Engine) CurrentState() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sink == nil {
		return StateUnavailable
	}
	return e.sink.State()
}

// render 将音序叠加渲染为单声道 PCM 采样
func render(tones []Tone, volume float64, sampleRate int) []float64 {
	var total time.Duration
	for _, t := range tones {
		if end := t.Delay + t.Duration; end > total {
			total = end
		}
	}

	buf := make([]float64, int(float64(sampleRate)*total.Seconds())+1)
	ramp := sampleRate / 200 // 5ms 的淡入淡出，避免爆音

	for _, t := range tones {
		start := int(float64(sampleRate) * t.Delay.Seconds())
		n := int(float64(sampleRate) * t.Duration.Seconds())
		for i := 0; i < n && start+i < len(buf); i++ {
			phase := float64(i) / float64(sampleRate) * t.Freq
			s := oscillate(t.Wave, phase)

			env := 1.0
			if i < ramp {
				env = float64(i) / float64(ramp)
			} else if n-i < ramp {
				env = float64(n-i) / float64(ramp)
			}

			buf[start+i] += s * t.Gain * volume * env
		}
	}

	for i, s := range buf {
		if s > 1 {
			buf[i] = 1
		} else if s < -1 {
			buf[i] = -1
		}
	}
	return buf
}

func oscillate(w Waveform, phase float64) float64 {
	frac := phase - math.Floor(phase)
	switch w {
	case WaveSquare:
		if frac < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*frac - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// WriterSink 将 16bit 小端 PCM 写入任意 Writer 的最小实现
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Play(pcm []float64, _ int) error {
	out := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	_, err := s.W.Write(out)
	return err
}

func (s *WriterSink) State() string { return StateRunning }

func (s *WriterSink) Resume() error { return nil }
