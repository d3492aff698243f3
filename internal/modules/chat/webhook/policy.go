// Package webhook delivers chat turns to a persona's external webhook and
// normalizes the reply.
package webhook

import (
	"strings"
	"time"
)

const (
	DefaultRetries          = 2
	DefaultTimeout          = 30 * time.Second
	DefaultBaseDelay        = time.Second
	DefaultChatPathPrefix   = "/webhook/chat"
	DefaultTraitsPathPrefix = "/webhook/traits"

	SignatureHeader = "X-Webhook-Signature"

	// FallbackReply is returned when a successful response carries no reply text.
	FallbackReply = "Sorry, I couldn't come up with a response. Please try again."

	maxResponseBytes = 1 << 20
)

type Policy struct {
	// Retries is the number of extra attempts after the first.
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration

	// SigningSecret enables the HMAC signature header when non-empty.
	SigningSecret string

	// AllowedHosts holds exact hostnames or "*.suffix" wildcards.
	// An empty list rejects every URL.
	AllowedHosts     []string
	ChatPathPrefix   string
	TraitsPathPrefix string
}

func (p Policy) withDefaults() Policy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if strings.TrimSpace(p.ChatPathPrefix) == "" {
		p.ChatPathPrefix = DefaultChatPathPrefix
	}
	if strings.TrimSpace(p.TraitsPathPrefix) == "" {
		p.TraitsPathPrefix = DefaultTraitsPathPrefix
	}
	return p
}

// DefaultPolicy is the production policy minus the deployment-specific
// allow-list and secret.
func DefaultPolicy() Policy {
	return Policy{
		Retries:          DefaultRetries,
		Timeout:          DefaultTimeout,
		BaseDelay:        DefaultBaseDelay,
		ChatPathPrefix:   DefaultChatPathPrefix,
		TraitsPathPrefix: DefaultTraitsPathPrefix,
	}
}

// Attempts is the total number of HTTP attempts per dispatch.
func (p Policy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return 1 + p.Retries
}

// Backoff is the sleep before the attempt following attempt n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return p.BaseDelay * time.Duration(1<<uint(n-1))
}
