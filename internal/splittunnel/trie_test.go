package splittunnel

import (
	"os"
	"path/filepath"
	"testing"
)

func TestShouldBypassEmpty(t *testing.T) {
	m := New()
	if m.ShouldBypass("10.0.0.1") {
		t.Error("empty matcher should never bypass")
	}
}

func TestShouldBypassUnparseable(t *testing.T) {
	m := New()
	if m.ShouldBypass("not-an-ip") {
		t.Error("unparseable input must never bypass")
	}
}

// S6: a rule file containing 10.0.0.0/8 makes 10.1.2.3 eligible for
// direct dialing.
func TestUpdateRulesAndBypass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	content := "# comment\n\n10.0.0.0/8\n192.168.1.1\nnot-a-cidr\nfe80::/10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}

	m := New()
	if err := m.UpdateRules([]string{path}); err != nil {
		t.Fatalf("UpdateRules: %v", err)
	}

	if !m.ShouldBypass("10.1.2.3") {
		t.Error("10.1.2.3 should bypass under 10.0.0.0/8")
	}
	if !m.ShouldBypass("192.168.1.1") {
		t.Error("192.168.1.1 should bypass as a bare /32 rule")
	}
	if m.ShouldBypass("8.8.8.8") {
		t.Error("8.8.8.8 should not bypass")
	}
	if !m.ShouldBypass("fe80::1") {
		t.Error("fe80::1 should bypass under fe80::/10")
	}
}

func TestUpdateRulesIsWholeSetReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")

	os.WriteFile(path, []byte("10.0.0.0/8\n"), 0o644)
	m := New()
	if err := m.UpdateRules([]string{path}); err != nil {
		t.Fatalf("UpdateRules: %v", err)
	}
	if !m.ShouldBypass("10.1.1.1") {
		t.Fatal("expected 10.1.1.1 to bypass after first load")
	}

	os.WriteFile(path, []byte("192.168.0.0/16\n"), 0o644)
	if err := m.UpdateRules([]string{path}); err != nil {
		t.Fatalf("UpdateRules: %v", err)
	}
	if m.ShouldBypass("10.1.1.1") {
		t.Error("old rule should no longer apply after whole-set replacement")
	}
	if !m.ShouldBypass("192.168.1.1") {
		t.Error("new rule should apply after whole-set replacement")
	}
}
