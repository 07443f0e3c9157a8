// Package ioutil wraps io.Copy with pooled buffers for the proxy tunnel loops.
package ioutil

import (
	"io"

	"mwtunnel/common/bufpool"
)

// Copy is io.Copy with a pooled buffer instead of a fresh allocation.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := bufpool.LargePool.Get()
	defer bufpool.LargePool.Put(buf)
	return io.CopyBuffer(dst, src, buf)
}

// CopyBidirectional pipes a and b into each other and returns once both
// directions have finished (EOF or error). Callers close a and b themselves.
func CopyBidirectional(a, b io.ReadWriteCloser) {
	done := make(chan struct{}, 2)
	go func() {
		Copy(a, b)
		done <- struct{}{}
	}()
	go func() {
		Copy(b, a)
		done <- struct{}{}
	}()
	<-done
	<-done
}
