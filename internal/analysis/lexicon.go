package analysis

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/edgard/lovebot/internal/domain/model"
)

// normalizationAlpha controls how fast raw lexicon sums saturate towards ±1.
const normalizationAlpha = 15.0

const (
	negationFactor   = -0.74
	capsBoost        = 1.3
	exclamationBoost = 0.3
	maxExclamations  = 4
	modifierLookback = 3
	defaultMaxTokens = 256
)

var entityPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"url", regexp.MustCompile(`https?://[^\s]+`)},
	{"mention", regexp.MustCompile(`@[\p{L}\p{N}_]+`)},
	{"hashtag", regexp.MustCompile(`#[\p{L}\p{N}_]+`)},
	{"money", regexp.MustCompile(`[$€£]\s?\d+(?:[.,]\d{1,2})?`)},
	{"phone", regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)},
}

// Lexicon is a deterministic keyword-based Analyzer.
type Lexicon struct {
	maxTokens  int
	thresholds Thresholds
}

// NewLexicon creates a Lexicon that reads at most maxTokens tokens per message.
func NewLexicon(maxTokens int, th Thresholds) *Lexicon {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Lexicon{maxTokens: maxTokens, thresholds: th}
}

// AnalyzeText extracts tokens, entities, intent and topics.
func (l *Lexicon) AnalyzeText(_ context.Context, content string) model.AnalysisResult {
	raw := tokenize(content, l.maxTokens)
	if len(raw) == 0 {
		return model.AnalysisResult{
			Entities: []model.Entity{},
			Intent:   model.IntentUnknown,
			Topics:   []string{},
			Tokens:   []string{},
		}
	}

	tokens := lower(raw)
	return model.AnalysisResult{
		Entities: extractEntities(content),
		Intent:   detectIntent(content, tokens),
		Topics:   detectTopics(tokens),
		Tokens:   tokens,
	}
}

// AnalyzeSentiment scores content in [-1, 1] from weighted keywords,
// honoring negations, intensifiers, capitalization and exclamation marks.
func (l *Lexicon) AnalyzeSentiment(_ context.Context, content string) model.SentimentResult {
	raw := tokenize(content, l.maxTokens)
	tokens := lower(raw)

	var sum, magnitude float64
	for i, tok := range tokens {
		w, ok := sentimentWeights[tok]
		if !ok {
			continue
		}
		for j := i - 1; j >= 0 && j >= i-modifierLookback; j-- {
			if _, neg := negations[tokens[j]]; neg {
				w *= negationFactor
			}
			if f, ok := intensifiers[tokens[j]]; ok {
				w *= f
			}
		}
		if isShouting(raw[i]) {
			w *= capsBoost
		}
		sum += w
		magnitude += math.Abs(w)
	}

	if sum != 0 {
		n := strings.Count(content, "!")
		if n > maxExclamations {
			n = maxExclamations
		}
		boost := float64(n) * exclamationBoost
		if sum < 0 {
			boost = -boost
		}
		sum += boost
	}

	return Classify(normalize(sum), magnitude, l.thresholds)
}

// ExpandTopics returns the topics followed by the keywords that identify them,
// suitable as store search terms.
func ExpandTopics(topics []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, t := range topics {
		add(t)
		for _, kw := range topicKeywords[t] {
			add(kw)
		}
	}
	return out
}

func normalize(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normalizationAlpha)
}

// tokenize splits content into word tokens, keeping inner apostrophes and hyphens.
func tokenize(content string, maxTokens int) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' || r == '-')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, "’", "'")
		f = strings.Trim(f, "'-")
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}

func lower(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = strings.ToLower(t)
	}
	return out
}

func isShouting(tok string) bool {
	letters := 0
	for _, r := range tok {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func detectIntent(content string, tokens []string) string {
	joined := " " + strings.Join(tokens, " ") + " "
	for _, group := range intentPhrases {
		for _, p := range group.phrases {
			if strings.Contains(joined, " "+p+" ") {
				return group.intent
			}
		}
	}

	if strings.HasSuffix(strings.TrimSpace(content), "?") {
		return "question"
	}
	if _, ok := questionWords[tokens[0]]; ok && len(tokens) > 1 {
		return "question"
	}
	if _, ok := greetings[tokens[0]]; ok {
		return "greeting"
	}
	if len(tokens) > 1 && tokens[0] == "good" {
		if _, ok := greetings[tokens[1]]; ok {
			return "greeting"
		}
	}
	return "statement"
}

func detectTopics(tokens []string) []string {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	found := []string{}
	for _, topic := range topicOrder {
		for _, kw := range topicKeywords[topic] {
			if _, ok := set[kw]; ok {
				found = append(found, topic)
				break
			}
		}
	}
	return found
}

type span struct {
	start, end int
	entity     model.Entity
}

// extractEntities returns non-overlapping entities in order of appearance.
func extractEntities(content string) []model.Entity {
	var spans []span
	for _, p := range entityPatterns {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			value := strings.TrimSpace(content[loc[0]:loc[1]])
			spans = append(spans, span{loc[0], loc[1], model.Entity{Type: p.kind, Value: value}})
		}
	}
	// Earlier patterns win ties, so url beats the phone-like digits inside it.
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	entities := []model.Entity{}
	end := -1
	for _, s := range spans {
		if s.start < end {
			continue
		}
		entities = append(entities, s.entity)
		end = s.end
	}
	return entities
}
