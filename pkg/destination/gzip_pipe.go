package destination

import (
	"compress/gzip"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// gzipCompressionReader reads the gzip compressed bytes of an underlying
// reader. Compression runs in a goroutine writing into an io.Pipe, whose
// read end serves Read. The underlying reader is never closed.
type gzipCompressionReader struct {
	src       io.Reader
	pr        *io.PipeReader
	bytesRead int // compressed bytes handed out so far
	once      sync.Once
}

var _ io.Reader = (*gzipCompressionReader)(nil)

func newGZIPCompressionReader(src io.Reader) *gzipCompressionReader {
	return &gzipCompressionReader{src: src}
}

func (r *gzipCompressionReader) start() {
	var pw *io.PipeWriter
	r.pr, pw = io.Pipe()
	go func() {
		gw := gzip.NewWriter(pw)
		if _, err := io.Copy(gw, r.src); err != nil {
			pw.CloseWithError(errors.Wrap(err, "copy to gzip writer"))
			return
		}
		pw.CloseWithError(errors.Wrap(gw.Close(), "close gzip writer"))
	}()
}

func (r *gzipCompressionReader) Read(p []byte) (int, error) {
	if r.src == nil {
		return 0, errors.New("no reader specified")
	}
	r.once.Do(r.start)
	n, err := r.pr.Read(p)
	r.bytesRead += n
	return n, err
}
