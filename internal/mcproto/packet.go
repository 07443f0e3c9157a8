package mcproto

import (
	"bytes"
	"fmt"
	"io"
)

// MaxFrameLength is the largest accepted total_len for a packet frame.
// Longer lengths are treated as FrameTooLarge: the session is torn down.
const MaxFrameLength = 2097152

// ReadPacketRaw reads one VarInt(total_len) ‖ VarInt(packet_id) ‖ body frame
// and returns the packet id and the remaining body bytes.
func ReadPacketRaw(r io.Reader) (int32, []byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return 0, nil, fmt.Errorf("mcproto: read frame length: %w", err)
	}
	if length < 0 || length > MaxFrameLength {
		return 0, nil, fmt.Errorf("mcproto: frame length %d out of bounds", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, fmt.Errorf("mcproto: read frame body: %w", err)
	}

	buf := bytes.NewReader(data)
	packetID, err := ReadVarInt(buf)
	if err != nil {
		return 0, nil, fmt.Errorf("mcproto: read packet id: %w", err)
	}

	body := make([]byte, buf.Len())
	_, _ = buf.Read(body)
	return packetID, body, nil
}

// WritePacketRaw writes one frame: VarInt(total_len) ‖ VarInt(packetID) ‖ body.
func WritePacketRaw(w io.Writer, packetID int32, body []byte) error {
	var payload bytes.Buffer
	if err := WriteVarInt(&payload, packetID); err != nil {
		return fmt.Errorf("mcproto: write packet id: %w", err)
	}
	if _, err := payload.Write(body); err != nil {
		return err
	}
	if err := WriteVarInt(w, int32(payload.Len())); err != nil {
		return fmt.Errorf("mcproto: write frame length: %w", err)
	}
	_, err := w.Write(payload.Bytes())
	return err
}
