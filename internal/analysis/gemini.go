package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	errs "github.com/edgard/lovebot/internal/errors"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/resilience"
)

const classifierInstruction = `You classify messages from a couple's group chat.
Return the intent of the message (one of: question, request, complaint, apology, gratitude, greeting, statement, unknown),
its topics (any of: %s), named entities, and a sentiment score between -1 (hostile) and 1 (affectionate)
with a non-negative magnitude describing emotional intensity.`

var classificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {Type: genai.TypeString, Description: "The single best intent label."},
		"topics": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Topics discussed, from the allowed list."},
		"entities": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":  {Type: genai.TypeString},
					"value": {Type: genai.TypeString},
				},
				Required: []string{"type", "value"},
			},
		},
		"sentiment_score":     {Type: genai.TypeNumber, Description: "Polarity from -1 to 1."},
		"sentiment_magnitude": {Type: genai.TypeNumber, Description: "Emotional intensity, 0 or greater."},
	},
	Required: []string{"intent", "topics", "entities", "sentiment_score", "sentiment_magnitude"},
}

// contentGenerator is the subset of the genai Models service used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type classification struct {
	Intent             string         `json:"intent"`
	Topics             []string       `json:"topics"`
	Entities           []model.Entity `json:"entities"`
	SentimentScore     float64        `json:"sentiment_score"`
	SentimentMagnitude float64        `json:"sentiment_magnitude"`
}

// Gemini classifies messages with the Gemini API and falls back to the
// Lexicon whenever the remote call fails or the circuit is open.
type Gemini struct {
	models     contentGenerator
	modelName  string
	genConfig  *genai.GenerateContentConfig
	fallback   *Lexicon
	thresholds Thresholds
	breaker    *resilience.CircuitBreaker
	log        *slog.Logger

	mu    sync.Mutex
	cache map[string]classification
}

const classificationCacheSize = 256

// NewGemini creates a Gemini-backed analyzer.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, fallback *Lexicon, th Thresholds, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errs.NewConfigError("gemini API key is required", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.NewAnalysisError("failed to create genai client", err)
	}

	return newGemini(client.Models, cfg, fallback, th, log), nil
}

func newGemini(models contentGenerator, cfg config.GeminiConfig, fallback *Lexicon, th Thresholds, log *slog.Logger) *Gemini {
	temperature := cfg.Temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   classificationSchema,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{
			{Text: fmt.Sprintf(classifierInstruction, strings.Join(topicOrder, ", "))},
		}},
	}

	if log == nil {
		log = logger.Discard()
	}
	l := log.With("component", "gemini_analyzer")
	l.Info("Gemini analyzer initialized", "model", cfg.ModelName)

	return &Gemini{
		models:     models,
		modelName:  cfg.ModelName,
		genConfig:  genConfig,
		fallback:   fallback,
		thresholds: th,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "gemini",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.Timeout,
			Logger:      l,
		}),
		log:   l,
		cache: make(map[string]classification),
	}
}

// AnalyzeText uses the remote classification for intent, topics and entities.
// Tokens always come from the local tokenizer.
func (g *Gemini) AnalyzeText(ctx context.Context, content string) model.AnalysisResult {
	local := g.fallback.AnalyzeText(ctx, content)
	if len(local.Tokens) == 0 {
		return local
	}

	c, err := g.classify(ctx, content)
	if err != nil {
		g.log.WarnContext(ctx, "Falling back to lexicon text analysis", "error", err, "code", errs.Code(err))
		return local
	}

	intent := strings.ToLower(strings.TrimSpace(c.Intent))
	if intent == "" {
		intent = model.IntentUnknown
	}
	entities := c.Entities
	if entities == nil {
		entities = []model.Entity{}
	}
	return model.AnalysisResult{
		Entities: entities,
		Intent:   intent,
		Topics:   knownTopics(c.Topics),
		Tokens:   local.Tokens,
	}
}

// AnalyzeSentiment uses the remote score, classified with the local thresholds.
func (g *Gemini) AnalyzeSentiment(ctx context.Context, content string) model.SentimentResult {
	if strings.TrimSpace(content) == "" {
		return g.fallback.AnalyzeSentiment(ctx, content)
	}
	c, err := g.classify(ctx, content)
	if err != nil {
		g.log.WarnContext(ctx, "Falling back to lexicon sentiment analysis", "error", err, "code", errs.Code(err))
		return g.fallback.AnalyzeSentiment(ctx, content)
	}
	return Classify(c.SentimentScore, c.SentimentMagnitude, g.thresholds)
}

func (g *Gemini) classify(ctx context.Context, content string) (classification, error) {
	g.mu.Lock()
	if c, ok := g.cache[content]; ok {
		g.mu.Unlock()
		return c, nil
	}
	g.mu.Unlock()

	var result classification
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		contents := []*genai.Content{genai.NewContentFromText(content, genai.RoleUser)}
		resp, err := g.models.GenerateContent(ctx, g.modelName, contents, g.genConfig)
		if err != nil {
			return err
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			return fmt.Errorf("classification blocked: %v", resp.PromptFeedback.BlockReason)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return fmt.Errorf("empty classification response")
		}
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			return fmt.Errorf("invalid classification JSON: %w", err)
		}
		return nil
	})
	if err != nil {
		return classification{}, errs.NewAnalysisError("gemini classification failed", err)
	}

	g.mu.Lock()
	if len(g.cache) >= classificationCacheSize {
		clear(g.cache)
	}
	g.cache[content] = result
	g.mu.Unlock()

	return result, nil
}

// knownTopics keeps only recognised topics, in canonical order.
func knownTopics(topics []string) []string {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	out := []string{}
	for _, t := range topicOrder {
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
