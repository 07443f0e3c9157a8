package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// linkPrefix is the connection-link URL scheme prefix of links shaped
// mw://<url-encoded password>@<host:port>#<url-encoded name>
const linkPrefix = "mw://"

// Link is the parsed shape of a connection link.
type Link struct {
	Name     string
	Server   string
	Password string
}

// ParseLink parses a "mw://PASSWORD@HOST:PORT#NAME" link. The password is
// URL-encoded; the name fragment is URL-decoded; server is taken verbatim.
func ParseLink(link string) (*Link, error) {
	if !strings.HasPrefix(link, linkPrefix) {
		return nil, fmt.Errorf("engine: unsupported link scheme in %q", link)
	}
	rest := link[len(linkPrefix):]

	atIdx := strings.Index(rest, "@")
	if atIdx < 0 {
		return nil, fmt.Errorf("engine: link missing password")
	}
	encPassword, afterAt := rest[:atIdx], rest[atIdx+1:]

	server, encName := afterAt, ""
	if hashIdx := strings.Index(afterAt, "#"); hashIdx >= 0 {
		server, encName = afterAt[:hashIdx], afterAt[hashIdx+1:]
	}
	if server == "" {
		return nil, fmt.Errorf("engine: link missing server")
	}

	password, err := url.QueryUnescape(encPassword)
	if err != nil {
		return nil, fmt.Errorf("engine: decode password: %w", err)
	}
	name, err := url.QueryUnescape(encName)
	if err != nil {
		return nil, fmt.Errorf("engine: decode name: %w", err)
	}

	return &Link{Name: name, Server: server, Password: password}, nil
}

// BuildLink renders a Link back into its mw:// form, inverse of ParseLink.
func BuildLink(l Link) string {
	return fmt.Sprintf("%s%s@%s#%s", linkPrefix, url.QueryEscape(l.Password), l.Server, url.QueryEscape(l.Name))
}
