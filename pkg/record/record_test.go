package record

import (
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/rftool/pkg/dma"
	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds a frame whose channel c carries I=base+c, Q=-(base+c).
func frame(base int16) []byte {
	b := make([]byte, dma.FrameSize)
	for c := 0; c < dma.Channels; c++ {
		binary.LittleEndian.PutUint16(b[c*4:], uint16(base+int16(c)))
		binary.LittleEndian.PutUint16(b[c*4+2:], uint16(-(base + int16(c))))
	}
	return b
}

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{SessionID: "abc-123", Variant: "dac1-adc1", Plan: "adc=1 dac=2 start=1", Started: time.Unix(1700000000, 0)}

	rec, path, err := Create(dir, meta)
	require.NoError(t, err)

	stream := append(frame(10), frame(100)...)
	stream = append(stream, frame(1000)...)

	// Feed in uneven pieces so frames straddle writes.
	for _, cut := range [][2]int{{0, 5}, {5, 40}, {40, 41}, {41, len(stream)}} {
		n, err := rec.Write(stream[cut[0]:cut[1]])
		require.NoError(t, err)
		assert.Equal(t, cut[1]-cut[0], n)
	}
	// Partial trailing frame is dropped on close.
	_, err = rec.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Rows())
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	st, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, st.Size())
	require.NoError(t, err)
	assert.Equal(t, int64(3), pf.NumRows())

	v, ok := pf.Lookup("session_id")
	require.True(t, ok)
	assert.Equal(t, "abc-123", v)
	v, ok = pf.Lookup("variant")
	require.True(t, ok)
	assert.Equal(t, "dac1-adc1", v)

	rows := make([]Sample, 3)
	r := parquet.NewGenericReader[Sample](f)
	defer r.Close()
	n, _ := r.Read(rows)
	require.Equal(t, 3, n)

	assert.Equal(t, int32(10), rows[0].I1)
	assert.Equal(t, int32(-10), rows[0].Q1)
	assert.Equal(t, int32(107), rows[1].I8)
	assert.Equal(t, int32(-1007), rows[2].Q8)
}

func TestCreateBadDir(t *testing.T) {
	file := t.TempDir() + "/file"
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, _, err := Create(file, Metadata{SessionID: "x"})
	assert.Error(t, err)
}
