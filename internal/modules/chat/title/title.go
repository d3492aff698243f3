// Package title picks a conversation title from the webhook response, an
// optional LLM, or the first user message, in that order.
package title

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const (
	SourceWebhook   = "webhook"
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"

	maxTitleRunes = 80
)

// Generator is the optional LLM title service.
type Generator interface {
	GenerateTitle(ctx context.Context, userMessage, assistantReply string) (string, error)
}

var chatWithPattern = regexp.MustCompile(`(?i)^chat with .+`)

var placeholders = map[string]struct{}{
	"untitled":         {},
	"new chat":         {},
	"new conversation": {},
}

// IsPlaceholder reports whether a stored title may be replaced automatically.
func IsPlaceholder(current *string) bool {
	if current == nil {
		return true
	}
	t := strings.TrimSpace(*current)
	if t == "" {
		return true
	}
	if _, ok := placeholders[strings.ToLower(t)]; ok {
		return true
	}
	return chatWithPattern.MatchString(t)
}

var embeddedPaths = []string{
	"suggestedTitle",
	"title",
	"data.suggestedTitle",
	"data.title",
	"metadata.suggestedTitle",
	"metadata.title",
}

// Embedded returns a title carried in a webhook response, if any.
func Embedded(doc gjson.Result) string {
	if doc.IsArray() {
		first := doc.Get("0")
		if inner := first.Get("json"); inner.Exists() {
			doc = inner
		} else {
			doc = first
		}
	}
	if !doc.IsObject() {
		return ""
	}
	for _, path := range embeddedPaths {
		v := doc.Get(path)
		if v.Type != gjson.String {
			continue
		}
		if t := clip(collapseSpace(v.String()), maxTitleRunes); t != "" {
			return t
		}
	}
	return ""
}

type Input struct {
	Response         gjson.Result
	FirstUserMessage string
	UserMessage      string
	AssistantReply   string
}

type Resolver struct {
	log     *logger.Logger
	gen     Generator
	timeout time.Duration
}

// NewResolver builds a resolver; gen may be nil when no LLM is configured.
func NewResolver(log *logger.Logger, gen Generator, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{log: log.With("component", "TitleResolver"), gen: gen, timeout: timeout}
}

// Resolve returns a title and its source, or "" when nothing usable exists.
func (r *Resolver) Resolve(ctx context.Context, in Input) (string, string) {
	if t := Embedded(in.Response); t != "" {
		return t, SourceWebhook
	}
	if r.gen != nil {
		gctx, cancel := context.WithTimeout(ctx, r.timeout)
		raw, err := r.gen.GenerateTitle(gctx, in.UserMessage, in.AssistantReply)
		cancel()
		if err != nil {
			r.log.Warn("llm title generation failed, falling back", "error", err)
		} else if t := CleanGenerated(raw); t != "" {
			return t, SourceLLM
		}
	}
	first := in.FirstUserMessage
	if strings.TrimSpace(first) == "" {
		first = in.UserMessage
	}
	if t := Heuristic(first); t != "" {
		return t, SourceHeuristic
	}
	return "", ""
}
