package frame

import (
	"bytes"
	"net"
	"testing"
	"time"

	"mwtunnel/internal/mcproto"
)

func newTestChannel(t *testing.T) (*Channel, net.Conn, [32]byte) {
	t.Helper()
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	clientConn, serverConn := net.Pipe()
	ch, err := New(clientConn, key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch, serverConn, key
}

// readSealedPlaintext reads one raw frame off peer and decrypts it,
// reproducing what the reference server's plugin-message handling does.
func readSealedPlaintext(t *testing.T, peer net.Conn, ch *Channel) []byte {
	t.Helper()
	packetID, body, err := mcproto.ReadPacketRaw(peer)
	if err != nil {
		t.Fatalf("ReadPacketRaw: %v", err)
	}
	if packetID != mcproto.PluginMessageServerboundID {
		t.Fatalf("packetID = 0x%02X, want 0x0D", packetID)
	}

	var buf bytes.Buffer
	buf.Write(body)
	channel, err := mcproto.ReadString(&buf)
	if err != nil {
		t.Fatalf("ReadString(channel): %v", err)
	}
	if channel != mcproto.PluginMessageChannel {
		t.Fatalf("channel = %q, want %q", channel, mcproto.PluginMessageChannel)
	}

	payload := buf.Bytes()
	if len(payload) < mcproto.NonceSize {
		t.Fatalf("payload too short: %d bytes", len(payload))
	}
	nonce := payload[:mcproto.NonceSize]
	sealed := payload[mcproto.NonceSize:]

	plaintext, err := ch.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		t.Fatalf("aead.Open: %v", err)
	}
	return plaintext
}

// S3 — threshold flush: a 4096-byte write flushes synchronously.
func TestFlushAtThreshold(t *testing.T) {
	ch, peer, _ := newTestChannel(t)
	defer peer.Close()

	payload := bytes.Repeat([]byte{0x41}, flushThreshold)

	done := make(chan struct{})
	go func() {
		n, err := ch.Write(payload)
		if err != nil || n != len(payload) {
			t.Errorf("Write: n=%d err=%v", n, err)
		}
		close(done)
	}()

	plaintext := readSealedPlaintext(t, peer, ch)
	if !bytes.Equal(plaintext, payload) {
		t.Errorf("plaintext length %d, want %d", len(plaintext), len(payload))
	}
	<-done
}

// S2 — small-write deferred flush: a single byte is flushed within the
// 5ms deferred timer.
func TestDeferredFlushSingleByte(t *testing.T) {
	ch, peer, _ := newTestChannel(t)
	defer peer.Close()

	go func() {
		if _, err := ch.Write([]byte{0x41}); err != nil {
			t.Errorf("Write: %v", err)
		}
	}()

	peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	plaintext := readSealedPlaintext(t, peer, ch)
	if !bytes.Equal(plaintext, []byte{0x41}) {
		t.Errorf("plaintext = % X, want [41]", plaintext)
	}
}

func TestKeepAliveEchoedWithSameID(t *testing.T) {
	ch, peer, _ := newTestChannel(t)
	defer peer.Close()
	ch.Start()

	const id int64 = 0x0123456789ABCDEF
	go func() {
		body := mcproto.EncodeKeepAliveServerbound(id)
		_ = mcproto.WritePacketRaw(peer, mcproto.KeepAliveClientboundID, body)
	}()

	peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	packetID, body, err := mcproto.ReadPacketRaw(peer)
	if err != nil {
		t.Fatalf("ReadPacketRaw: %v", err)
	}
	if packetID != mcproto.KeepAliveServerboundID {
		t.Fatalf("packetID = 0x%02X, want 0x15", packetID)
	}
	got, err := mcproto.DecodeKeepAliveClientbound(body)
	if err != nil || got != id {
		t.Errorf("echoed id = %x, err = %v, want %x", got, err, id)
	}
}
