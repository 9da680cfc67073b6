// Package sideband implements the side-band multiplexing used to carry
// pack bytes, progress messages, and fatal errors over a single pkt-line
// stream (§4.2, §4.4, §4.9.3 of the protocol design).
package sideband

import (
	"errors"
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing/format/pktline"
)

// Channel is a side-band multiplexing channel byte.
type Channel byte

const (
	// PackData carries raw pack bytes.
	PackData Channel = 1
	// ProgressMessage carries human-readable progress text; callers
	// surface it as an event rather than an error.
	ProgressMessage Channel = 2
	// Error carries a fatal message; receiving one aborts the transfer
	// with a RemoteError.
	Error Channel = 3
)

// Progress is where a client surfaces human-readable progress text
// received on the side-band-64k progress channel; os.Stderr and
// bytes.Buffer both satisfy it, along with any io.Writer.
type Progress io.Writer

// MaxPacketSize bounds a single side-band chunk: pack bytes are sliced into
// chunks of at most this size before framing, per §4.4.
const MaxPacketSize = 65519

// RemoteError wraps a fatal message received on the Error channel.
type RemoteError struct{ Message string }

func (e *RemoteError) Error() string { return "remote: " + e.Message }

// ErrUnsupportedChannel is returned when a pkt-line's first byte names a
// channel outside {1,2,3}.
var ErrUnsupportedChannel = errors.New("sideband: unsupported channel")

// Demuxer reads a side-banded pkt-line stream and exposes PackData as a
// plain io.Reader, invoking Progress for channel-2 text and returning a
// *RemoteError the first time channel 3 appears.
type Demuxer struct {
	r        *pktline.Reader
	Progress func([]byte)
	buf      []byte
	err      error
}

// NewDemuxer wraps r. If progress is nil, channel-2 messages are dropped.
func NewDemuxer(r io.Reader, progress func([]byte)) *Demuxer {
	if progress == nil {
		progress = func([]byte) {}
	}
	return &Demuxer{r: pktline.NewReader(r), Progress: progress}
}

// Read implements io.Reader over the demultiplexed pack-data channel.
func (d *Demuxer) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		kind, payload, err := d.r.Next()
		if err != nil {
			if err == io.EOF {
				d.err = io.EOF
				return 0, io.EOF
			}
			return 0, err
		}
		if kind != pktline.Payload {
			// A flush ends the multiplexed stream.
			d.err = io.EOF
			continue
		}
		if len(payload) == 0 {
			continue
		}
		switch Channel(payload[0]) {
		case PackData:
			d.buf = payload[1:]
		case ProgressMessage:
			d.Progress(payload[1:])
		case Error:
			d.err = &RemoteError{Message: string(payload[1:])}
			return 0, d.err
		default:
			return 0, ErrUnsupportedChannel
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

// Muxer writes pack bytes (and, optionally, progress text) to w as
// side-band-64k framed pkt-lines, chunked at MaxPacketSize.
type Muxer struct {
	w io.Writer
}

// NewMuxer wraps w for side-band encoding.
func NewMuxer(w io.Writer) *Muxer { return &Muxer{w: w} }

// Write implements io.Writer, framing p as one or more PackData pkt-lines.
func (m *Muxer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > MaxPacketSize {
			n = MaxPacketSize
		}
		b, err := pktline.EncodeSideBand(byte(PackData), p[:n])
		if err != nil {
			return written, err
		}
		if _, err := m.w.Write(b); err != nil {
			return written, err
		}
		written += n
		p = p[n:]
	}
	return written, nil
}

// WriteProgress sends a channel-2 progress message.
func (m *Muxer) WriteProgress(msg []byte) error {
	b, err := pktline.EncodeSideBand(byte(ProgressMessage), msg)
	if err != nil {
		return err
	}
	_, err = m.w.Write(b)
	return err
}

// WriteError sends a channel-3 fatal message, aborting the transfer.
func (m *Muxer) WriteError(msg string) error {
	b, err := pktline.EncodeSideBand(byte(Error), []byte(msg))
	if err != nil {
		return err
	}
	_, err = m.w.Write(b)
	return err
}
