package webhook

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL enforces the outbound rules for a chat webhook: https only,
// an allow-listed host, no embedded credentials and a chat path that is
// not the traits path.
func ValidateURL(raw string, p Policy) (*url.URL, error) {
	p = p.withDefaults()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty webhook url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unparseable webhook url")
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return nil, fmt.Errorf("webhook url must use https")
	}
	if u.User != nil {
		return nil, fmt.Errorf("webhook url must not carry credentials")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("webhook url has no host")
	}
	if !hostAllowed(host, p.AllowedHosts) {
		return nil, fmt.Errorf("webhook host %q is not allow-listed", host)
	}
	path := u.EscapedPath()
	if hasPathPrefix(path, p.TraitsPathPrefix) {
		return nil, fmt.Errorf("webhook path targets the traits endpoint")
	}
	if !hasPathPrefix(path, p.ChatPathPrefix) {
		return nil, fmt.Errorf("webhook path must start with %s", p.ChatPathPrefix)
	}
	return u, nil
}

func hostAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:]
			if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

// hasPathPrefix matches whole segments: "/webhook/chat" matches
// "/webhook/chat" and "/webhook/chat/x" but not "/webhook/chatty".
func hasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/")
}
