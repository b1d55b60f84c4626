// Package interview implements the mock-interview engine: turn generation,
// audio bridging, feedback extraction, and the session state machine.
package interview

import (
	"encoding/json"
	"strings"

	"github.com/jamiewalsh/careerprep/internal/types"
)

// FeedbackSource tags which extraction stage produced a feedback value.
type FeedbackSource string

// Feedback extraction stages, in priority order
const (
	SourceJSON     FeedbackSource = "json"
	SourceMarkers  FeedbackSource = "markers"
	SourceFallback FeedbackSource = "fallback"
)

// ParsedFeedback is the result of feedback extraction along with the stage
// that produced it.
type ParsedFeedback struct {
	Feedback types.InterviewFeedback
	Source   FeedbackSource
}

// fallbackOverallLimit bounds the raw-text prefix used when no structure is found.
const fallbackOverallLimit = 500

// Defaults used when extraction yields partial or empty results. Returning
// something actionable wins over strict fidelity here.
var (
	fallbackStrengths   = []string{"Review the transcript to identify your strongest answers"}
	fallbackImprovement = []string{"Review the transcript and note questions you struggled with"}
	defaultStrengths    = []string{"Communication", "Professionalism"}
	defaultImprovements = []string{"Discuss specific examples", "Technical depth"}
)

// ParseFeedback converts free-form model output into InterviewFeedback. It
// tolerates three quality levels of input, tried in priority order: an
// embedded JSON object, marker-formatted sections, and finally a degenerate
// prose fallback. It never fails; a feedback value is always returned.
func ParseFeedback(raw string) ParsedFeedback {
	if fb, ok := parseEmbeddedJSON(raw); ok {
		return ParsedFeedback{Feedback: fb, Source: SourceJSON}
	}
	if fb, ok := parseMarkers(raw); ok {
		return ParsedFeedback{Feedback: fb, Source: SourceMarkers}
	}
	return ParsedFeedback{Feedback: proseFallback(raw), Source: SourceFallback}
}

// parseEmbeddedJSON locates the first '{' and the last '}' in the text and
// attempts to parse the substring as an object. The object is accepted if it
// carries at least one recognized feedback key; missing fields default to empty.
func parseEmbeddedJSON(raw string) (types.InterviewFeedback, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return types.InterviewFeedback{}, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return types.InterviewFeedback{}, false
	}

	var fb types.InterviewFeedback
	recognized := false

	if v, ok := firstRaw(obj, "overall_feedback", "overall"); ok {
		recognized = true
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			fb.OverallFeedback = strings.TrimSpace(s)
		}
	}
	if v, ok := firstRaw(obj, "strengths"); ok {
		recognized = true
		fb.Strengths = stringList(v)
	}
	if v, ok := firstRaw(obj, "areas_for_improvement", "areas"); ok {
		recognized = true
		fb.AreasForImprovement = stringList(v)
	}

	if !recognized {
		return types.InterviewFeedback{}, false
	}
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.AreasForImprovement == nil {
		fb.AreasForImprovement = []string{}
	}
	return fb, true
}

func firstRaw(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// stringList coerces a JSON value into a list of non-empty strings, dropping
// anything that is not a string.
func stringList(raw json.RawMessage) []string {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// markerSection identifies which feedback section subsequent lines belong to.
type markerSection int

const (
	sectionNone markerSection = iota
	sectionOverall
	sectionStrengths
	sectionImprovements
)

// parseMarkers scans line-by-line, tracking a current-section cursor that
// switches on case-insensitive OVERALL:/STRENGTHS:/IMPROVEMENTS:/AREAS:
// prefixes. Overall lines are space-joined; list lines are collected only when
// bullet-prefixed, with the marker stripped. Partial results are backfilled
// with small fixed defaults rather than left empty.
func parseMarkers(raw string) (types.InterviewFeedback, bool) {
	var overall []string
	strengths := []string{}
	improvements := []string{}
	section := sectionNone

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if rest, ok := markerPrefix(line, "OVERALL:"); ok {
			section = sectionOverall
			if rest != "" {
				overall = append(overall, rest)
			}
			continue
		}
		if rest, ok := markerPrefix(line, "STRENGTHS:"); ok {
			section = sectionStrengths
			if item, isBullet := stripBullet(rest); isBullet {
				strengths = append(strengths, item)
			}
			continue
		}
		if rest, ok := markerPrefix(line, "IMPROVEMENTS:"); ok {
			section = sectionImprovements
			if item, isBullet := stripBullet(rest); isBullet {
				improvements = append(improvements, item)
			}
			continue
		}
		if rest, ok := markerPrefix(line, "AREAS:"); ok {
			section = sectionImprovements
			if item, isBullet := stripBullet(rest); isBullet {
				improvements = append(improvements, item)
			}
			continue
		}

		switch section {
		case sectionOverall:
			overall = append(overall, line)
		case sectionStrengths:
			if item, ok := stripBullet(line); ok {
				strengths = append(strengths, item)
			}
		case sectionImprovements:
			if item, ok := stripBullet(line); ok {
				improvements = append(improvements, item)
			}
		}
	}

	overallText := strings.TrimSpace(strings.Join(overall, " "))
	if overallText == "" && len(strengths) == 0 && len(improvements) == 0 {
		return types.InterviewFeedback{}, false
	}

	// Backfill partial results so the caller always gets something actionable.
	if overallText == "" {
		overallText = truncate(strings.TrimSpace(raw), fallbackOverallLimit)
	}
	if len(strengths) == 0 {
		strengths = append(strengths, defaultStrengths...)
	}
	if len(improvements) == 0 {
		improvements = append(improvements, defaultImprovements...)
	}

	return types.InterviewFeedback{
		OverallFeedback:     overallText,
		Strengths:           strengths,
		AreasForImprovement: improvements,
	}, true
}

// markerPrefix reports whether line starts with marker (case-insensitive) and
// returns the trimmed remainder of the line after it.
func markerPrefix(line, marker string) (string, bool) {
	if len(line) < len(marker) {
		return "", false
	}
	if !strings.EqualFold(line[:len(marker)], marker) {
		return "", false
	}
	return strings.TrimSpace(line[len(marker):]), true
}

// stripBullet removes a leading "-", "*", or "1."-style marker. Lines without
// a bullet marker are not list items.
func stripBullet(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	if line[0] == '-' || line[0] == '*' {
		return strings.TrimSpace(line[1:]), true
	}

	// Digit-dot pattern, e.g. "1." or "12."
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && line[i] == '.' {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}

// proseFallback is the degenerate stage: the raw prefix becomes the overall
// text and the lists point the candidate back at the transcript.
func proseFallback(raw string) types.InterviewFeedback {
	overall := truncate(strings.TrimSpace(raw), fallbackOverallLimit)
	if overall == "" {
		overall = "The interview ended before enough material was gathered for detailed feedback."
	}
	return types.InterviewFeedback{
		OverallFeedback:     overall,
		Strengths:           append([]string(nil), fallbackStrengths...),
		AreasForImprovement: append([]string(nil), fallbackImprovement...),
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
