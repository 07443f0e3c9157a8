package mcproto

import (
	"bytes"
	"testing"
)

func TestPacketRawRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("payload bytes")
	if err := WritePacketRaw(&buf, 0x0D, body); err != nil {
		t.Fatalf("WritePacketRaw: %v", err)
	}

	packetID, gotBody, err := ReadPacketRaw(&buf)
	if err != nil {
		t.Fatalf("ReadPacketRaw: %v", err)
	}
	if packetID != 0x0D {
		t.Errorf("packetID = 0x%02X, want 0x0D", packetID)
	}
	if !bytes.Equal(gotBody, body) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
}

func TestPacketRawFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteVarInt(&buf, MaxFrameLength+1)
	if _, _, err := ReadPacketRaw(&buf); err == nil {
		t.Fatal("expected error for over-length frame")
	}
}

func TestEncodeHandshakeBytes(t *testing.T) {
	// S1: Handshake body begins with VarInt(773), String("127.0.0.1"),
	// the fixed port bytes 0x63 0xDD, then VarInt(2).
	body := EncodeHandshake()

	var buf bytes.Buffer
	buf.Write(body)

	version, err := ReadVarInt(&buf)
	if err != nil || version != ProtocolVersion {
		t.Fatalf("protocol version = %d, err = %v", version, err)
	}
	host, err := ReadString(&buf)
	if err != nil || host != MasqueradeHost {
		t.Fatalf("host = %q, err = %v", host, err)
	}
	var portBytes [2]byte
	if _, err := buf.Read(portBytes[:]); err != nil {
		t.Fatalf("read port bytes: %v", err)
	}
	if portBytes != [2]byte{0x63, 0xDD} {
		t.Fatalf("port bytes = %v, want [0x63 0xDD]", portBytes)
	}
	nextState, err := ReadVarInt(&buf)
	if err != nil || nextState != NextStateLogin {
		t.Fatalf("next_state = %d, err = %v", nextState, err)
	}
}

func TestEncodeLoginStartUsername(t *testing.T) {
	body := EncodeLoginStart("Playerf52fbd32")
	var buf bytes.Buffer
	buf.Write(body)
	got, err := ReadString(&buf)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "Playerf52fbd32" {
		t.Errorf("username = %q", got)
	}
}

func TestKeepAliveRoundTrip(t *testing.T) {
	const id int64 = 0x0123456789ABCDEF
	body := EncodeKeepAliveServerbound(id)
	if !bytes.Equal(body, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}) {
		t.Errorf("keep-alive body = % X", body)
	}
	got, err := DecodeKeepAliveClientbound(body)
	if err != nil || got != id {
		t.Errorf("decode = %x, err = %v", got, err)
	}
}
