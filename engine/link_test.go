package engine

import "testing"

func TestLinkRoundTrip(t *testing.T) {
	cases := []Link{
		{Name: "My Server", Server: "example.com:25565", Password: "hunter2"},
		{Name: "", Server: "1.2.3.4:25565", Password: "p@ss w/ord!"},
		{Name: "unicode Café", Server: "host:1", Password: "密码"},
	}
	for _, l := range cases {
		link := BuildLink(l)
		got, err := ParseLink(link)
		if err != nil {
			t.Fatalf("ParseLink(%q): %v", link, err)
		}
		if got.Name != l.Name || got.Server != l.Server || got.Password != l.Password {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, l)
		}
	}
}

func TestParseLinkRejectsWrongScheme(t *testing.T) {
	if _, err := ParseLink("http://pw@host:1#name"); err == nil {
		t.Fatal("expected error for non-mw scheme")
	}
}

func TestParseLinkRejectsMissingPassword(t *testing.T) {
	if _, err := ParseLink("mw://host:1#name"); err == nil {
		t.Fatal("expected error for missing password")
	}
}
