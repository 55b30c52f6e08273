package session

import (
	"errors"
	"io"
	"time"

	"github.com/rftool/pkg/record"
	"github.com/rs/zerolog"
)

// stream copies samples to the data connection while the session is alive.
// It never touches the command connection or its buffers. prev, when not
// nil, is a worker that outlived its join timeout; the source is opened only
// after it exits so one device is never read twice.
func (m *Manager) stream(s *Session, prev <-chan struct{}, log zerolog.Logger) {
	defer close(s.done)

	if prev != nil {
		select {
		case <-prev:
		default:
			log.Warn().Msg("waiting for previous data worker to exit")
			select {
			case <-prev:
			case <-s.stop:
				return
			}
		}
	}

	src, err := m.open()
	if err != nil {
		log.Error().Err(err).Msg("open sample source")
		return
	}
	defer src.Close()

	var rec *record.Recorder
	if m.cfg.RecordDir != "" {
		var path string
		rec, path, err = record.Create(m.cfg.RecordDir, record.Metadata{
			SessionID: s.ID,
			Variant:   m.cfg.Variant.String(),
			Plan:      m.cfg.Plan.String(),
			Started:   time.Now(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("recording disabled for session")
		} else {
			log.Info().Str("path", path).Msg("recording session")
			defer func() {
				if rec == nil {
					return
				}
				if err := rec.Close(); err != nil {
					log.Warn().Err(err).Msg("close recording")
				}
				log.Info().Int64("rows", rec.Rows()).Msg("recording closed")
			}()
		}
	}

	buf := make([]byte, m.cfg.ChunkSize)
	var sent int64
	for s.alive.Load() {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := s.data.Write(buf[:n]); werr != nil {
				if s.alive.Load() {
					log.Debug().Err(werr).Msg("data write failed")
				}
				break
			}
			sent += int64(n)
			m.m.DataBytes.Add(float64(n))
			if rec != nil {
				if _, rerr := rec.Write(buf[:n]); rerr != nil {
					log.Warn().Err(rerr).Msg("recording stopped")
					rec.Close()
					rec = nil
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("sample source read failed")
			}
			break
		}
	}
	log.Debug().Int64("bytes", sent).Msg("data worker stopped")
}
