package webhook

import (
	"strings"

	"github.com/tidwall/gjson"
)

type extractor func(doc gjson.Result) (string, bool)

func keyExtractor(key string) extractor {
	return func(doc gjson.Result) (string, bool) {
		if !doc.IsObject() {
			return "", false
		}
		return nonEmptyString(doc.Get(key))
	}
}

func bareString(doc gjson.Result) (string, bool) {
	return nonEmptyString(doc)
}

// replyExtractors is tried in order; the first hit wins.
var replyExtractors = []extractor{
	keyExtractor("reply"),
	keyExtractor("message"),
	keyExtractor("response"),
	keyExtractor("output"),
	keyExtractor("data"),
	bareString,
}

func nonEmptyString(v gjson.Result) (string, bool) {
	if v.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return "", false
	}
	return v.String(), true
}

// Document parses a webhook body. n8n wraps results as [{"json": {...}}];
// such arrays are unwrapped to their first element's json object.
func Document(body []byte) gjson.Result {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return gjson.Result{}
	}
	if !gjson.Valid(trimmed) {
		// Plain-text bodies behave like a bare JSON string.
		return gjson.Result{Type: gjson.String, Str: trimmed, Raw: trimmed}
	}
	doc := gjson.Parse(trimmed)
	if doc.IsArray() {
		first := doc.Get("0")
		if inner := first.Get("json"); inner.Exists() {
			return inner
		}
		return first
	}
	return doc
}

// ExtractReply returns the reply text and whether a known shape matched.
// On a miss the text is FallbackReply.
func ExtractReply(doc gjson.Result) (string, bool) {
	for _, ex := range replyExtractors {
		if s, ok := ex(doc); ok {
			return s, true
		}
	}
	return FallbackReply, false
}
