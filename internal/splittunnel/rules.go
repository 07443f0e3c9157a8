package splittunnel

import (
	"bufio"
	"net/netip"
	"os"
	"strings"

	"mwtunnel/internal/logger"
)

// UpdateRules rebuilds the rule set from the given rule files and swaps it
// in atomically. Each file is UTF-8 text, one entry per line; blank lines
// and lines starting with '#' are skipped. An entry is a CIDR
// ("A.B.C.D/N" or "[v6]/N") or a bare address, treated as a /32 or /128.
// Malformed lines are silently skipped; safe to call in any state.
func (m *Matcher) UpdateRules(paths []string) error {
	log := logger.Named("SplitTunnel")
	v4 := newTrie()
	v6 := newTrie()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			log.Warn("rule file %s: %v", path, err)
			continue
		}
		scanLines(f, v4, v6, log)
		f.Close()
	}

	m.swap(v4, v6)
	return nil
}

func scanLines(f *os.File, v4, v6 *trieNode, log *logger.Logger) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addBits(line, v4, v6, log)
	}
}

// addBits parses one rule entry and inserts it into the matching trie.
func addBits(line string, v4, v6 *trieNode, log *logger.Logger) {
	if prefix, err := netip.ParsePrefix(line); err == nil {
		insertPrefix(prefix, v4, v6)
		return
	}
	if addr, err := netip.ParseAddr(line); err == nil {
		bits := 32
		if addr.Is6() && !addr.Is4In6() {
			bits = 128
		}
		prefix := netip.PrefixFrom(addr, bits)
		insertPrefix(prefix, v4, v6)
		return
	}
	log.Debug("skipping malformed split-tunnel rule: %q", line)
}

func insertPrefix(prefix netip.Prefix, v4, v6 *trieNode) {
	addr := prefix.Addr().Unmap()
	if addr.Is4() {
		b := addr.As4()
		v4.insert(b[:], prefix.Bits())
		return
	}
	b := addr.As16()
	v6.insert(b[:], prefix.Bits())
}
