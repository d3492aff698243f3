package title

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxGeneratedWords = 7
	maxHeuristicRunes = 50
)

var (
	spaceRun = regexp.MustCompile(`\s+`)

	// Longest alternatives first so "hey there" beats "hey".
	leadingFiller = regexp.MustCompile(`(?i)^(hi there|hello there|hey there|good (morning|afternoon|evening)|hi|hello|hey|greetings|yo|ok(ay)?|so|um+|uh+|please|pls|can you|could you|would you|will you|can u|i want to|i'd like to|i would like to|i need to|i need|help me|tell me|let's|lets)\b[\s,.!:;-]*`)

	titlePrefix = regexp.MustCompile(`(?i)^(title|conversation title|chat title)\s*:\s*`)
)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func clip(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxRunes]))
}

func stripFiller(s string) string {
	for {
		next := strings.TrimSpace(leadingFiller.ReplaceAllString(s, ""))
		if next == s {
			return s
		}
		s = next
	}
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// CleanGenerated normalizes LLM output: quotes and a "Title:" label are
// removed, greetings stripped and the result capped at seven words.
func CleanGenerated(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = collapseSpace(s)
	s = titlePrefix.ReplaceAllString(s, "")
	s = trimPunct(s)
	s = stripFiller(s)
	s = trimPunct(s)
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	if len(words) > maxGeneratedWords {
		words = words[:maxGeneratedWords]
	}
	for i, w := range words {
		words[i] = strings.TrimRightFunc(w, unicode.IsPunct)
	}
	return clip(strings.Join(words, " "), maxTitleRunes)
}

// Heuristic derives a title from the first user message: leading greetings
// and filler are dropped, the rest is title-cased and cut at a word boundary.
func Heuristic(message string) string {
	s := stripFiller(trimPunct(collapseSpace(message)))
	if i := strings.IndexAny(s, ".?!"); i > 0 {
		s = s[:i]
	}
	s = trimPunct(s)
	if s == "" {
		return ""
	}
	s = cases.Title(language.English, cases.NoLower).String(s)
	if len([]rune(s)) <= maxHeuristicRunes {
		return s
	}
	cut := []rune(s)[:maxHeuristicRunes]
	out := string(cut)
	if i := strings.LastIndexByte(out, ' '); i > 0 {
		out = out[:i]
	}
	return strings.TrimSpace(trimPunct(out))
}
