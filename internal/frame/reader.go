package frame

import (
	"bytes"
	"fmt"
	"io"

	"mwtunnel/internal/mcproto"
	"mwtunnel/internal/nbt"
)

// readLoop reads Minecraft packets off the socket until error, dispatching
// chunk-data into the read pipe and echoing keep-alives immediately. It
// always closes the channel on exit.
func (c *Channel) readLoop() {
	defer c.Close()

	for {
		packetID, body, err := mcproto.ReadPacketRaw(c.conn)
		if err != nil {
			c.pw.CloseWithError(fmt.Errorf("frame: read loop: %w", err))
			return
		}

		switch packetID {
		case mcproto.ChunkDataID:
			c.handleChunkData(body)
		case mcproto.KeepAliveClientboundID:
			c.handleKeepAlive(body)
		default:
			// Time Update and everything else the teacher's read-discard
			// path falls through on a live connection; not an error.
			c.log.Debug("discarded packet id 0x%02X (%d bytes)", packetID, len(body))
		}
	}
}

// handleChunkData recovers the obfuscated payload from a Chunk Data
// (0x25) packet: skip the fixed header, skip the heightmaps NBT value,
// read the length-prefixed payload, and attempt to open it as AEAD
// ciphertext. Failure is expected for genuine chunk traffic and is a
// silent drop.
func (c *Channel) handleChunkData(body []byte) {
	if len(body) < mcproto.ChunkDataHeaderSize {
		return
	}
	r := bytes.NewReader(body[mcproto.ChunkDataHeaderSize:])

	if _, err := nbt.Skip(r); err != nil {
		c.log.Debug("chunk-data heightmaps skip failed: %v", err)
		return
	}

	payloadLen, err := mcproto.ReadVarInt(r)
	if err != nil || payloadLen < 0 {
		return
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return
	}

	if int(payloadLen) < mcproto.NonceSize {
		c.stats.FrameDropped()
		return
	}

	nonce := payload[:mcproto.NonceSize]
	sealed := payload[mcproto.NonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// CryptoOpenFailed: expected for real chunk-data payloads that
		// are not AEAD ciphertext.
		c.stats.FrameDropped()
		return
	}

	if _, err := c.pw.Write(plaintext); err != nil {
		c.log.Debug("read pipe write failed: %v", err)
	}
	c.stats.AddBytesReceived(uint64(len(plaintext)))
}

// handleKeepAlive echoes a clientbound Keep-Alive (0x24) with the matching
// serverbound Keep-Alive (0x15) immediately, ahead of any buffered
// application write not yet flushed.
func (c *Channel) handleKeepAlive(body []byte) {
	id, err := mcproto.DecodeKeepAliveClientbound(body)
	if err != nil {
		c.log.Debug("malformed keep-alive: %v", err)
		return
	}
	if err := c.WriteRawPacket(mcproto.KeepAliveServerboundID, mcproto.EncodeKeepAliveServerbound(id)); err != nil {
		c.log.Debug("keep-alive echo failed: %v", err)
		return
	}
	c.stats.KeepAliveEchoed()
}
