// Package record tees a session's streamed frames into a Parquet file.
package record

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rftool/pkg/dma"
	"github.com/segmentio/parquet-go"
)

// Sample is one time step: 8 complex channels, 1-based column names.
type Sample struct {
	I1 int32 `parquet:"I1"`
	Q1 int32 `parquet:"Q1"`
	I2 int32 `parquet:"I2"`
	Q2 int32 `parquet:"Q2"`
	I3 int32 `parquet:"I3"`
	Q3 int32 `parquet:"Q3"`
	I4 int32 `parquet:"I4"`
	Q4 int32 `parquet:"Q4"`
	I5 int32 `parquet:"I5"`
	Q5 int32 `parquet:"Q5"`
	I6 int32 `parquet:"I6"`
	Q6 int32 `parquet:"Q6"`
	I7 int32 `parquet:"I7"`
	Q7 int32 `parquet:"Q7"`
	I8 int32 `parquet:"I8"`
	Q8 int32 `parquet:"Q8"`
}

// Metadata is stored as key/value pairs in the file footer.
type Metadata struct {
	SessionID string
	Variant   string
	Plan      string
	Started   time.Time
}

// Recorder converts whole frames to rows; a trailing partial frame waits
// for the next Write.
type Recorder struct {
	file    io.Closer
	writer  *parquet.GenericWriter[Sample]
	pending []byte
	rows    int64
}

// Create opens <dir>/<session id>.parquet.
func Create(dir string, meta Metadata) (*Recorder, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("record: %w", err)
	}
	path := filepath.Join(dir, meta.SessionID+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("record: %w", err)
	}
	return New(f, meta), path, nil
}

func New(w io.WriteCloser, meta Metadata) *Recorder {
	return &Recorder{
		file: w,
		writer: parquet.NewGenericWriter[Sample](w,
			parquet.KeyValueMetadata("session_id", meta.SessionID),
			parquet.KeyValueMetadata("variant", meta.Variant),
			parquet.KeyValueMetadata("plan", meta.Plan),
			parquet.KeyValueMetadata("started", meta.Started.UTC().Format(time.RFC3339Nano)),
		),
	}
}

func (r *Recorder) Write(data []byte) (int, error) {
	r.pending = append(r.pending, data...)

	whole := len(r.pending) / dma.FrameSize * dma.FrameSize
	if whole == 0 {
		return len(data), nil
	}
	if err := r.writeFrames(r.pending[:whole]); err != nil {
		return 0, err
	}
	r.pending = append(r.pending[:0], r.pending[whole:]...)
	return len(data), nil
}

// Rows returns the number of rows written so far.
func (r *Recorder) Rows() int64 { return r.rows }

// Close flushes the footer. A trailing partial frame is dropped.
func (r *Recorder) Close() error {
	if err := r.writer.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("record: %w", err)
	}
	return r.file.Close()
}

func (r *Recorder) writeFrames(buf []byte) error {
	rows := make([]Sample, len(buf)/dma.FrameSize)
	for i := range rows {
		iq := dma.Decode(buf[i*dma.FrameSize:])
		rows[i] = Sample{
			I1: int32(iq[0][0]), Q1: int32(iq[0][1]),
			I2: int32(iq[1][0]), Q2: int32(iq[1][1]),
			I3: int32(iq[2][0]), Q3: int32(iq[2][1]),
			I4: int32(iq[3][0]), Q4: int32(iq[3][1]),
			I5: int32(iq[4][0]), Q5: int32(iq[4][1]),
			I6: int32(iq[5][0]), Q6: int32(iq[5][1]),
			I7: int32(iq[6][0]), Q7: int32(iq[6][1]),
			I8: int32(iq[7][0]), Q8: int32(iq[7][1]),
		}
	}
	n, err := r.writer.Write(rows)
	r.rows += int64(n)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}
