package dma

import (
	"encoding/binary"
	"math"
	"math/rand"
	"time"
)

// ToneConfig parameterizes the simulated source. Zero fields take the
// defaults of the reference capture chain.
type ToneConfig struct {
	SampleRate float64
	Frequency  float64
	Amplitude  float64
	Seed       int64 // 0 seeds from the clock
}

const (
	defaultSampleRate = 2445e5
	defaultFrequency  = 26e6
	defaultAmplitude  = 2040.0

	// 12-bit signed range.
	sampleMax = 2047
	sampleMin = -2048
)

// Tone produces 12-bit LSB aligned I/Q frames of a single tone with
// triangular dither. Channel c is offset by c*pi/8.
type Tone struct {
	amplitude  float64
	tuningWord uint32
	phaseAcc   uint32
	chanOffset [Channels]uint32
	rng        *rand.Rand

	frame [FrameSize]byte
	off   int
}

func NewTone(cfg ToneConfig) *Tone {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = defaultFrequency
	}
	if cfg.Amplitude <= 0 {
		cfg.Amplitude = defaultAmplitude
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	// The full circle maps onto [0, 2^32), so the accumulator wraps for free.
	t := &Tone{
		amplitude:  cfg.Amplitude,
		tuningWord: uint32(cfg.Frequency / cfg.SampleRate * 4294967296.0),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		off:        FrameSize,
	}
	for c := range t.chanOffset {
		t.chanOffset[c] = uint32(c) * (4294967296 / 16)
	}
	return t
}

func (t *Tone) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if t.off == FrameSize {
			t.next()
		}
		c := copy(p[n:], t.frame[t.off:])
		t.off += c
		n += c
	}
	return n, nil
}

func (t *Tone) Close() error { return nil }

func (t *Tone) next() {
	for c := 0; c < Channels; c++ {
		rads := float64(t.phaseAcc+t.chanOffset[c]) * (2.0 * math.Pi / 4294967296.0)

		i := t.amplitude*math.Cos(rads) + t.rng.Float64() - t.rng.Float64()
		q := t.amplitude*math.Sin(rads) + t.rng.Float64() - t.rng.Float64()

		binary.LittleEndian.PutUint16(t.frame[c*4:], uint16(clamp(i)))
		binary.LittleEndian.PutUint16(t.frame[c*4+2:], uint16(clamp(q)))
	}
	t.phaseAcc += t.tuningWord
	t.off = 0
}

func clamp(v float64) int16 {
	if v > sampleMax {
		return sampleMax
	}
	if v < sampleMin {
		return sampleMin
	}
	return int16(v)
}
