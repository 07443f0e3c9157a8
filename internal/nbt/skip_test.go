package nbt

import (
	"bytes"
	"testing"
)

func TestSkipEnd(t *testing.T) {
	n, err := Skip(bytes.NewReader([]byte{TagEnd}))
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if n != 1 {
		t.Errorf("consumed %d, want 1", n)
	}
}

func TestSkipByte(t *testing.T) {
	// tag(byte) ‖ name_len(0) ‖ payload(1 byte)
	data := []byte{TagByte, 0x00, 0x00, 0x2A}
	n, err := Skip(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d, want %d", n, len(data))
	}
}

func TestSkipCompoundWithNestedByte(t *testing.T) {
	// compound "" { byte "x" = 1 ; end }
	data := []byte{
		TagCompound, 0x00, 0x00, // root compound, empty name
		TagByte, 0x00, 0x01, 'x', 0x01, // nested byte named "x" = 1
		TagEnd, // compound terminator
	}
	n, err := Skip(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d, want %d", n, len(data))
	}
}

func TestSkipResumesAfterValue(t *testing.T) {
	data := []byte{TagByte, 0x00, 0x00, 0x2A, 0xAA, 0xBB} // trailing bytes after the value
	r := bytes.NewReader(data)
	n, err := Skip(r)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if n != 4 {
		t.Fatalf("consumed %d, want 4", n)
	}
	rest := make([]byte, 2)
	if _, err := r.Read(rest); err != nil {
		t.Fatalf("read remainder: %v", err)
	}
	if !bytes.Equal(rest, []byte{0xAA, 0xBB}) {
		t.Errorf("remainder = % X", rest)
	}
}

func TestSkipListOfInts(t *testing.T) {
	// list(int), 2 elements: 1, 2
	data := []byte{
		TagList, 0x00, 0x00, // root list, empty name
		TagInt,
		0x00, 0x00, 0x00, 0x02, // count = 2
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02,
	}
	n, err := Skip(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d, want %d", n, len(data))
	}
}
