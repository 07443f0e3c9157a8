// Package handshake performs the Minecraft login sequence that makes the
// tunnel's TCP connection indistinguishable from a vanilla client up to the
// point where plugin messages start flowing.
package handshake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	mnet "mwtunnel/common/net"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/mcproto"
)

// loginDeadline bounds the wait for the server's login-success and first
// configuration/play packet.
const loginDeadline = 15 * time.Second

// Result is what a successful handshake hands back to the caller: the
// connected socket and the derived AEAD key.
type Result struct {
	Conn net.Conn
	Key  [32]byte
}

// DisconnectError is returned when the server answers the login with a
// LOGIN_DISCONNECT instead of succeeding. Reason is the raw chat-JSON text
// the server sent, kept only for diagnostics.
type DisconnectError struct {
	Reason string
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("handshake: server disconnected during login: %s", e.Reason)
}

// DeriveKey computes the AEAD key for password: SHA-256(password).
func DeriveKey(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

// MasqueradeUsername derives the login username from the password: the
// literal "Player" followed by the first 8 hex characters of its SHA-256
// digest.
func MasqueradeUsername(password string) string {
	key := DeriveKey(password)
	return "Player" + hex.EncodeToString(key[:])[:8]
}

// Dial connects to addr, runs the fixed handshake sequence with password,
// and returns the live socket plus the derived AEAD key. Any I/O error
// aborts; the caller is expected to back off and retry.
func Dial(addr, password string) (*Result, error) {
	log := logger.Named("Handshake")

	conn, err := net.DialTimeout("tcp", addr, loginDeadline)
	if err != nil {
		return nil, fmt.Errorf("handshake: dial %s: %w", addr, err)
	}
	ok := false
	defer func() {
		if !ok {
			conn.Close()
		}
	}()

	if err := mnet.MasqueradeKeepAlive(conn); err != nil {
		return nil, fmt.Errorf("handshake: set tcp options: %w", err)
	}

	if err := mcproto.WritePacketRaw(conn, mcproto.HandshakeID, mcproto.EncodeHandshake()); err != nil {
		return nil, fmt.Errorf("handshake: send Handshake: %w", err)
	}

	username := MasqueradeUsername(password)
	if err := mcproto.WritePacketRaw(conn, mcproto.LoginStartID, mcproto.EncodeLoginStart(username)); err != nil {
		return nil, fmt.Errorf("handshake: send LoginStart: %w", err)
	}

	if err := mnet.SetDeadlines(conn, loginDeadline, 0); err != nil {
		return nil, fmt.Errorf("handshake: set login deadline: %w", err)
	}

	for i := 0; i < 2; i++ {
		packetID, body, err := mcproto.ReadPacketRaw(conn)
		if err != nil {
			return nil, fmt.Errorf("handshake: read login packet %d: %w", i, err)
		}
		if packetID == mcproto.LoginDisconnectID && i == 0 {
			reason, derr := readDisconnectReason(body)
			if derr == nil && reason != "" {
				return nil, &DisconnectError{Reason: reason}
			}
		}
		log.Debug("discarded login packet %d (id 0x%02X, %d bytes)", i, packetID, len(body))
	}

	if err := mnet.SetDeadlines(conn, 0, 0); err != nil {
		return nil, fmt.Errorf("handshake: clear deadline: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	if err := mcproto.WritePacketRaw(conn, mcproto.ClientSettingsID, mcproto.EncodeClientSettings()); err != nil {
		return nil, fmt.Errorf("handshake: send ClientSettings: %w", err)
	}

	ok = true
	return &Result{Conn: conn, Key: DeriveKey(password)}, nil
}

// readDisconnectReason best-effort extracts the "text" field of a raw
// Minecraft chat-JSON disconnect reason. Body is a single VarInt-prefixed
// string holding the JSON text; this does not attempt to parse structured
// chat components, only the flat {"text": "..."} shape the reference
// server sends.
func readDisconnectReason(body []byte) (string, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("handshake: disconnect body too short")
	}
	const marker = `"text":"`
	s := string(body)
	idx := -1
	for i := 0; i+len(marker) <= len(s); i++ {
		if s[i:i+len(marker)] == marker {
			idx = i + len(marker)
			break
		}
	}
	if idx < 0 {
		return s, nil
	}
	end := idx
	for end < len(s) && s[end] != '"' {
		end++
	}
	return s[idx:end], nil
}
