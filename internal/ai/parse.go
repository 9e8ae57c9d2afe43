package ai

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Sentiment is the parsed shape of a sentiment reply.
type Sentiment struct {
	Sentiment string `json:"sentiment"`
	Score     int    `json:"score"`
	Label     string `json:"label"`
}

var (
	// DefaultSuggestions are offered when there is no conversation yet.
	DefaultSuggestions = []string{"Hi! How can I help you today?", "Thanks for reaching out!", "Let me know if you have any questions."}
	// FallbackSuggestions replace an unusable suggestions reply.
	FallbackSuggestions = []string{"Thanks for the update!", "Let me look into that for you.", "Can we schedule a quick call?"}

	FallbackSentiment   = Sentiment{Sentiment: "neutral", Score: 50, Label: "Unknown"}
	NoMessagesSentiment = Sentiment{Sentiment: "neutral", Score: 50, Label: "No messages yet"}
)

// GhostFallbackMessage is the re-engagement text used when no suggestion can be generated.
const GhostFallbackMessage = "Hey, just floating this back up - any thoughts?"

// StripFences removes a surrounding markdown code fence, with or without a language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		tag := strings.TrimSpace(s[:nl])
		if tag == "" || !strings.ContainsAny(tag, "[{\"") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ExtractJSON finds the JSON value in a model reply. It accepts bare JSON,
// fenced JSON, and JSON embedded in prose. ok is false when nothing parses.
func ExtractJSON(text string) (gjson.Result, bool) {
	s := StripFences(text)
	if s != "" && gjson.Valid(s) {
		return gjson.Parse(s), true
	}
	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start < 0 || end <= start {
			continue
		}
		candidate := s[start : end+1]
		if gjson.Valid(candidate) {
			return gjson.Parse(candidate), true
		}
	}
	return gjson.Result{}, false
}

// ParseSuggestions reads up to n non-empty strings from a JSON array reply.
func ParseSuggestions(text string, n int) ([]string, bool) {
	res, ok := ExtractJSON(text)
	if !ok || !res.IsArray() {
		return nil, false
	}
	out := make([]string, 0, n)
	for _, v := range res.Array() {
		if len(out) == n {
			break
		}
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// ParseSentiment reads a {sentiment, score, label} object, clamping the score to 0..100.
func ParseSentiment(text string) (Sentiment, bool) {
	res, ok := ExtractJSON(text)
	if !ok || !res.IsObject() {
		return Sentiment{}, false
	}
	s := Sentiment{
		Sentiment: strings.ToLower(strings.TrimSpace(res.Get("sentiment").String())),
		Label:     strings.TrimSpace(res.Get("label").String()),
	}
	switch s.Sentiment {
	case "positive", "neutral", "negative":
	default:
		return Sentiment{}, false
	}
	score := res.Get("score")
	if !score.Exists() {
		return Sentiment{}, false
	}
	s.Score = int(score.Int())
	if s.Score < 0 {
		s.Score = 0
	}
	if s.Score > 100 {
		s.Score = 100
	}
	return s, true
}

// CleanMessage trims a free-text reply and drops one pair of wrapping quotes.
func CleanMessage(text string) string {
	s := StripFences(text)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
