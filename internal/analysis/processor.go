package analysis

import (
	"context"
	"log/slog"

	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/memory"
)

// Searcher finds stored messages of a conversation matching any of terms.
type Searcher interface {
	Search(ctx context.Context, terms []string, conversationID string) ([]model.Message, error)
}

// Processor turns a stored message into a ProcessedMessage using an Analyzer
// and the conversation memory.
type Processor struct {
	analyzer Analyzer
	memory   *memory.Manager
	searcher Searcher
	logger   *slog.Logger
}

// NewProcessor creates a Processor. searcher may be nil to disable store fallback.
func NewProcessor(analyzer Analyzer, mem *memory.Manager, searcher Searcher, log *slog.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{
		analyzer: analyzer,
		memory:   mem,
		searcher: searcher,
		logger:   log.With("component", "processor"),
	}
}

// Process analyzes msg, records it in memory and gathers earlier messages on
// the same topics. history is the conversation's stored history, newest first,
// and is used to seed memory for conversations not seen since startup.
func (p *Processor) Process(ctx context.Context, msg model.Message, history []model.Message) model.ProcessedMessage {
	if len(history) > 0 {
		p.warm(ctx, msg, history)
	}

	analysis := p.analyzer.AnalyzeText(ctx, msg.Content)
	sentiment := p.analyzer.AnalyzeSentiment(ctx, msg.Content)

	relevant := p.memory.Relevant(msg.ConversationID, analysis)
	p.memory.Record(msg, analysis, sentiment)

	if len(relevant) == 0 && len(analysis.Topics) > 0 && p.searcher != nil {
		relevant = p.searchStore(ctx, msg, analysis)
	}

	return model.ProcessedMessage{
		Original:        msg,
		Analysis:        analysis,
		Sentiment:       sentiment,
		RelevantContext: relevant,
	}
}

// warm seeds an empty conversation window with the newest window-sized slice
// of history, oldest first, so the window ends up in arrival order.
func (p *Processor) warm(ctx context.Context, msg model.Message, history []model.Message) {
	warmed := 0
	ran := p.memory.WarmOnce(msg.ConversationID, func() []memory.Entry {
		end := min(len(history), p.memory.Capacity())
		entries := make([]memory.Entry, 0, end)
		for i := end - 1; i >= 0; i-- {
			h := history[i]
			if h.ID == msg.ID || h.ConversationID != msg.ConversationID {
				continue
			}
			entries = append(entries, memory.Entry{
				Message:   h,
				Analysis:  p.analyzer.AnalyzeText(ctx, h.Content),
				Sentiment: p.analyzer.AnalyzeSentiment(ctx, h.Content),
			})
		}
		warmed = len(entries)
		return entries
	})
	if ran {
		p.logger.DebugContext(ctx, "Warmed conversation memory from history",
			"conversation_id", msg.ConversationID, "messages", warmed)
	}
}

func (p *Processor) searchStore(ctx context.Context, msg model.Message, analysis model.AnalysisResult) []model.Message {
	found, err := p.searcher.Search(ctx, ExpandTopics(analysis.Topics), msg.ConversationID)
	if err != nil {
		p.logger.WarnContext(ctx, "Store search for related messages failed",
			"conversation_id", msg.ConversationID, "message_id", msg.ID, "error", err)
		return []model.Message{}
	}

	// Keyword hits are substring matches, so keep only messages whose own
	// analysis shares a topic with msg.
	out := make([]model.Message, 0, len(found))
	for _, m := range found {
		if m.ID == msg.ID {
			continue
		}
		if p.analyzer.AnalyzeText(ctx, m.Content).SharesTopic(analysis) {
			out = append(out, m)
		}
	}
	return out
}
