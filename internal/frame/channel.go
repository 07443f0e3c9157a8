// Package frame implements the obfuscated byte-duplex: application bytes
// are buffered, AEAD-sealed, and emitted as Plugin Message packets; bytes
// recovered from Chunk Data packets are handed back through a pipe. A
// Channel is an io.ReadWriteCloser and is the transport the stream
// multiplexer runs on.
package frame

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"mwtunnel/internal/logger"
	"mwtunnel/internal/mcproto"
	"mwtunnel/internal/stats"
)

const (
	flushThreshold = 4 * 1024
	flushDelay     = 5 * time.Millisecond
	initialBufCap  = 16 * 1024
)

// Channel is a single obfuscated frame channel over one TCP connection.
type Channel struct {
	conn  net.Conn
	aead  cipher.AEAD
	log   *logger.Logger
	stats *stats.Stats

	mu    sync.Mutex // guards buf, timer, and all direct writes to conn
	buf   []byte
	timer *time.Timer

	pr *io.PipeReader
	pw *io.PipeWriter

	closeOnce sync.Once
}

// New wraps conn in a Channel keyed by key (AES-256-GCM).
func New(conn net.Conn, key [32]byte) (*Channel, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("frame: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("frame: new GCM: %w", err)
	}

	pr, pw := io.Pipe()
	c := &Channel{
		conn:  conn,
		aead:  aead,
		log:   logger.Named("FrameChannel"),
		stats: stats.Global(),
		buf:   make([]byte, 0, initialBufCap),
		pr:    pr,
		pw:    pw,
	}
	return c, nil
}

// Start launches the reader task that dispatches incoming Minecraft
// packets (chunk-data into the read pipe, keep-alive echoed immediately,
// everything else discarded) in its own goroutine and returns immediately.
func (c *Channel) Start() {
	go c.readLoop()
}

// Read satisfies io.Reader by draining application bytes recovered from
// chunk-data packets.
func (c *Channel) Read(p []byte) (int, error) {
	return c.pr.Read(p)
}

// Write appends p to the buffer, flushing synchronously at the 4 KiB
// threshold or arming a 5 ms deferred flush otherwise.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = append(c.buf, p...)

	if len(c.buf) >= flushThreshold {
		if err := c.flushLocked(); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	if c.timer == nil {
		c.timer = time.AfterFunc(flushDelay, c.onTimer)
	}
	return len(p), nil
}

func (c *Channel) onTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = nil
	if len(c.buf) == 0 {
		return
	}
	if err := c.flushLocked(); err != nil {
		c.log.Error("deferred flush failed: %v", err)
	}
}

// flushLocked seals the current buffer and writes one plugin-message
// frame. Caller must hold c.mu.
func (c *Channel) flushLocked() error {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if len(c.buf) == 0 {
		return nil
	}

	nonce := make([]byte, mcproto.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("frame: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, c.buf, nil)

	payload := make([]byte, 0, mcproto.NonceSize+len(sealed))
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	body := mcproto.EncodePluginMessage(mcproto.PluginMessageChannel, payload)
	if err := mcproto.WritePacketRaw(c.conn, mcproto.PluginMessageServerboundID, body); err != nil {
		return fmt.Errorf("frame: write plugin message: %w", err)
	}

	c.stats.AddBytesSent(uint64(len(c.buf)))
	c.buf = c.buf[:0]
	return nil
}

// writeRawLocked writes a packet directly to the connection. Caller must
// hold c.mu, the same mutex flushLocked runs under, so noise traffic and
// keep-alive echoes interleave cleanly with application flushes instead of
// racing the socket.
func (c *Channel) writeRawLocked(packetID int32, body []byte) error {
	return mcproto.WritePacketRaw(c.conn, packetID, body)
}

// WriteRawPacket sends an unsealed Minecraft packet (noise traffic,
// keep-alive echoes) serialized against application-data flushes.
func (c *Channel) WriteRawPacket(packetID int32, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeRawLocked(packetID, body)
}

// Close stops any armed timer and closes the underlying socket and pipe.
// Unflushed buffered data is lost; the caller (the session supervisor)
// reconnects.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.mu.Unlock()
		err = c.conn.Close()
		c.pw.CloseWithError(io.EOF)
	})
	return err
}
