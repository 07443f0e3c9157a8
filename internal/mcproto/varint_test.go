package mcproto

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int32{0, 1, 127, 128, 255, 2097151, 1 << 30, (1 << 31) - 1}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			t.Fatalf("WriteVarInt(%d): %v", v, err)
		}
		if buf.Len() != VarIntSize(v) {
			t.Errorf("VarIntSize(%d) = %d, encoded length = %d", v, VarIntSize(v), buf.Len())
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestVarIntTooLong(t *testing.T) {
	// Five continuation bytes followed by a sixth: rejected.
	buf := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	if _, err := ReadVarInt(buf); err == nil {
		t.Fatal("expected error for over-length VarInt")
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "hello", "minecraft:brand"}
	for _, s := range cases {
		var buf bytes.Buffer
		if err := WriteString(&buf, s); err != nil {
			t.Fatalf("WriteString(%q): %v", s, err)
		}
		got, err := ReadString(&buf)
		if err != nil {
			t.Fatalf("ReadString(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestStringTooLong(t *testing.T) {
	s := make([]byte, MaxStringLength+1)
	if err := WriteString(&bytes.Buffer{}, string(s)); err == nil {
		t.Fatal("expected error for over-length string")
	}
}

func TestStringLengthBoundaryOnRead(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteVarInt(&buf, MaxStringLength+1)
	if _, err := ReadString(&buf); err == nil {
		t.Fatal("expected error reading over-length string")
	}
}
