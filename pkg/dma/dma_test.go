package dma

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneFramesStayInRange(t *testing.T) {
	tone := NewTone(ToneConfig{Seed: 1})
	buf := make([]byte, FrameSize*256)

	n, err := tone.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	for f := 0; f < n/FrameSize; f++ {
		for _, s := range Decode(buf[f*FrameSize:]) {
			assert.GreaterOrEqual(t, s[0], int16(sampleMin))
			assert.LessOrEqual(t, s[0], int16(sampleMax))
			assert.GreaterOrEqual(t, s[1], int16(sampleMin))
			assert.LessOrEqual(t, s[1], int16(sampleMax))
		}
	}
}

func TestToneFirstFramePhases(t *testing.T) {
	tone := NewTone(ToneConfig{Seed: 7, Amplitude: 1000})
	buf := make([]byte, FrameSize)
	_, err := tone.Read(buf)
	require.NoError(t, err)

	iq := Decode(buf)
	for c := 0; c < Channels; c++ {
		rads := float64(c) * math.Pi / 8
		// Dither is at most one LSB either way plus truncation.
		assert.InDelta(t, 1000*math.Cos(rads), float64(iq[c][0]), 2.0, "channel %d I", c)
		assert.InDelta(t, 1000*math.Sin(rads), float64(iq[c][1]), 2.0, "channel %d Q", c)
	}
}

func TestToneSplitReadsMatchWholeReads(t *testing.T) {
	whole := make([]byte, FrameSize*4)
	_, err := NewTone(ToneConfig{Seed: 3}).Read(whole)
	require.NoError(t, err)

	split := NewTone(ToneConfig{Seed: 3})
	var got []byte
	for _, size := range []int{5, 27, 1, 64, 31} {
		p := make([]byte, size)
		n, err := split.Read(p)
		require.NoError(t, err)
		got = append(got, p[:n]...)
	}
	assert.Equal(t, whole, got)
}

func TestCaptureFromTone(t *testing.T) {
	src, err := Open(Config{Source: "sim", Tone: ToneConfig{Seed: 1}})
	require.NoError(t, err)
	defer src.Close()

	res, err := Capture(src, 1024*1024)
	require.NoError(t, err)
	assert.Equal(t, 1024*1024, res.BytesRead)
	assert.Len(t, res.Data, 1024*1024)
	assert.Positive(t, res.Duration)
}

func TestOpenUnknownSource(t *testing.T) {
	_, err := Open(Config{Source: "udp"})
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, int16(sampleMax), clamp(5000))
	assert.Equal(t, int16(sampleMin), clamp(-5000))
	assert.Equal(t, int16(12), clamp(12.7))
}
