package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/inconshreveable/log15"
)

// defaultChunkSize bounds how much of a pack stream is buffered before each
// flush to the client.
const defaultChunkSize = 4096

// flushResponseWriter wraps an http.ResponseWriter so that a streamed pack
// or object body is flushed in bounded chunks rather than buffered whole,
// which matters behind proxies that buffer on Write. Its no-op Close lets it
// satisfy io.WriteCloser for callers that expect to close the destination.
type flushResponseWriter struct {
	http.ResponseWriter
	log       log15.Logger
	chunkSize int
}

// ReadFrom implements io.ReaderFrom, copying r in chunkSize-sized pieces and
// flushing after each one.
func (f *flushResponseWriter) ReadFrom(r io.Reader) (int64, error) {
	flusher := http.NewResponseController(f.ResponseWriter) // nolint: bodyclose

	var written int64
	buf := make([]byte, f.chunkSize)
	for {
		nr, err := r.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}

		nw, err := f.ResponseWriter.Write(buf[:nr])
		if err != nil {
			f.log.Error("write chunk", "err", err)
			renderStatusError(f.ResponseWriter, http.StatusInternalServerError)
			return written, err
		}
		if nr != nw {
			return written, io.ErrShortWrite
		}
		written += int64(nr)

		if err := flusher.Flush(); err != nil {
			f.log.Error("flush chunk", "wrote", nw, "want", nr)
			renderStatusError(f.ResponseWriter, http.StatusInternalServerError)
			return written, fmt.Errorf("flush response: %w", err)
		}
	}

	return written, nil
}

// Close is a no-op; the underlying http.ResponseWriter has no close of its
// own, but callers streaming into an io.WriteCloser expect one.
func (f *flushResponseWriter) Close() error {
	return nil
}
