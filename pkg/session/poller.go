package session

import (
	"bytes"
	"errors"
	"net"
	"os"
	"time"
)

// poller reads newline-terminated commands without blocking longer than one
// poll interval. Bytes received without a newline are carried to the next
// poll.
type poller struct {
	conn     net.Conn
	interval time.Duration
	limit    int

	buf      []byte
	chunk    []byte
	overlong bool // discarding until the next newline
}

func newPoller(conn net.Conn, interval time.Duration, limit int) *poller {
	return &poller{
		conn:     conn,
		interval: interval,
		limit:    limit,
		buf:      make([]byte, 0, limit),
		chunk:    make([]byte, 512),
	}
}

// poll returns one complete line without its terminator. A nil line with a
// nil error means nothing complete arrived within the interval. tooLong is
// set once per line that exceeded the buffer; its content is discarded.
func (p *poller) poll() (line []byte, tooLong bool, err error) {
	if line, tooLong, ok := p.next(); ok {
		return line, tooLong, nil
	}

	if err := p.conn.SetReadDeadline(time.Now().Add(p.interval)); err != nil {
		return nil, false, err
	}
	n, err := p.conn.Read(p.chunk)
	if n > 0 {
		p.buf = append(p.buf, p.chunk[:n]...)
		if line, tooLong, ok := p.next(); ok {
			return line, tooLong, nil
		}
	}
	if err != nil {
		if isTimeout(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return nil, false, nil
}

func (p *poller) next() (line []byte, tooLong bool, ok bool) {
	i := bytes.IndexByte(p.buf, '\n')
	if i < 0 {
		if len(p.buf) > p.limit {
			p.overlong = true
			p.buf = p.buf[:0]
		}
		return nil, false, false
	}

	seg := bytes.TrimSuffix(p.buf[:i], []byte("\r"))
	if p.overlong || len(seg) > p.limit {
		p.overlong = false
		p.consume(i + 1)
		return nil, true, true
	}
	line = append([]byte(nil), seg...)
	p.consume(i + 1)
	return line, false, true
}

func (p *poller) consume(n int) {
	p.buf = append(p.buf[:0], p.buf[n:]...)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
