package mcproto

import "bytes"

// Packet ids used by the masquerade. Several collide across protocol phases
// (0x00 is Handshake during handshaking and both LoginStart/LoginDisconnect
// during login) — the phase the driver is in disambiguates them.
const (
	HandshakeID       int32 = 0x00
	LoginStartID      int32 = 0x00
	LoginDisconnectID int32 = 0x00

	ClientSettingsID           int32 = 0x08
	PluginMessageServerboundID int32 = 0x0D
	PlayerPositionID           int32 = 0x14
	KeepAliveClientboundID     int32 = 0x24
	KeepAliveServerboundID     int32 = 0x15
	ChunkDataID                int32 = 0x25
)

// ProtocolVersion is the Minecraft Java Edition 1.21-family protocol number
// the masquerade announces.
const ProtocolVersion int32 = 773

// MasqueradeHost and masqueradePortBytes are the target address the
// Handshake packet announces; the real destination is whatever the caller
// dialed.
const MasqueradeHost = "127.0.0.1"

var masqueradePortBytes = [2]byte{0x63, 0xDD} // 25565, big-endian

// NextStateLogin is the Handshake next_state field value for entering login.
const NextStateLogin int32 = 2

// EncodeHandshake builds the body of the serverbound Handshake (0x00) packet:
// VarInt(protocol) ‖ String(host) ‖ u16(port) ‖ VarInt(next_state).
func EncodeHandshake() []byte {
	var buf bytes.Buffer
	_ = WriteVarInt(&buf, ProtocolVersion)
	_ = WriteString(&buf, MasqueradeHost)
	buf.Write(masqueradePortBytes[:])
	_ = WriteVarInt(&buf, NextStateLogin)
	return buf.Bytes()
}

// EncodeLoginStart builds the body of the serverbound LoginStart (0x00)
// packet: just the VarInt-length-prefixed username, matching the
// uncompressed pre-compression-threshold dialect this masquerade speaks.
func EncodeLoginStart(username string) []byte {
	var buf bytes.Buffer
	_ = WriteString(&buf, username)
	return buf.Bytes()
}

// ClientSettings field values, fixed for every session.
const (
	clientSettingsLocale               = "en_US"
	clientSettingsViewDistance   byte  = 8
	clientSettingsChatMode       int32 = 0
	clientSettingsChatColors           = true
	clientSettingsSkinParts      byte  = 0x7F
	clientSettingsMainHand       int32 = 1
	clientSettingsDisableFilter         = false
	clientSettingsAllowListings         = true
)

// EncodeClientSettings builds the body of the serverbound ClientSettings
// (0x08) packet with the fixed field values from the handshake design.
func EncodeClientSettings() []byte {
	var buf bytes.Buffer
	_ = WriteString(&buf, clientSettingsLocale)
	_ = WriteByteValue(&buf, clientSettingsViewDistance)
	_ = WriteVarInt(&buf, clientSettingsChatMode)
	_ = WriteBool(&buf, clientSettingsChatColors)
	_ = WriteByteValue(&buf, clientSettingsSkinParts)
	_ = WriteVarInt(&buf, clientSettingsMainHand)
	_ = WriteBool(&buf, clientSettingsDisableFilter)
	_ = WriteBool(&buf, clientSettingsAllowListings)
	return buf.Bytes()
}

// PluginMessageChannel is the channel string every outbound obfuscated
// frame is disguised as.
const PluginMessageChannel = "minecraft:brand"

// EncodePluginMessage builds the body of a serverbound Plugin Message
// (0x0D) packet: String(channel) ‖ payload.
func EncodePluginMessage(channel string, payload []byte) []byte {
	var buf bytes.Buffer
	_ = WriteString(&buf, channel)
	buf.Write(payload)
	return buf.Bytes()
}

// EncodeKeepAliveServerbound builds the body of the serverbound Keep-Alive
// (0x15) packet: the 8-byte big-endian id, unchanged from the one received.
func EncodeKeepAliveServerbound(id int64) []byte {
	var buf bytes.Buffer
	_ = WriteInt64(&buf, id)
	return buf.Bytes()
}

// DecodeKeepAliveClientbound reads the 8-byte id out of a clientbound
// Keep-Alive (0x24) packet body.
func DecodeKeepAliveClientbound(body []byte) (int64, error) {
	return ReadInt64(bytes.NewReader(body))
}

// EncodePlayerPosition builds the body of the serverbound Player Position
// (0x14) packet: f64(x) ‖ f64(y) ‖ f64(z) ‖ bool(on_ground).
func EncodePlayerPosition(x, y, z float64, onGround bool) []byte {
	var buf bytes.Buffer
	_ = WriteFloat64(&buf, x)
	_ = WriteFloat64(&buf, y)
	_ = WriteFloat64(&buf, z)
	_ = WriteBool(&buf, onGround)
	return buf.Bytes()
}

// ChunkDataHeaderSize is the number of leading bytes a Chunk Data (0x25)
// packet body carries before its heightmaps NBT value, fixed for protocol
// version 773. An implementer targeting a different protocol version must
// revisit this constant.
const ChunkDataHeaderSize = 8

// NonceSize is the AEAD nonce length embedded at the front of every
// obfuscated payload, both directions.
const NonceSize = 12

// TagSize is the AES-256-GCM authentication tag length.
const TagSize = 16
