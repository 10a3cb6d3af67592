package ai

import (
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/report"
)

const (
	DefaultSuggestModel = "gpt-3.5-turbo"
	DefaultSummaryModel = "gpt-4o-mini"
	DefaultInsightCount = 3
	DefaultTimeout      = 30 * time.Second

	suggestMaxTokens    = 15
	summaryTemperature  = 0.7
	suggestionCacheSize = 256
	suggestionCacheTTL  = 24 * time.Hour
)

// Settings tune the assistant. Zero values select the defaults.
type Settings struct {
	SuggestModel string
	SummaryModel string
	InsightCount int
	Timeout      time.Duration
	Currency     string
	Fallback     string
}

func (s Settings) withDefaults() Settings {
	if s.SuggestModel == "" {
		s.SuggestModel = DefaultSuggestModel
	}
	if s.SummaryModel == "" {
		s.SummaryModel = DefaultSummaryModel
	}
	if s.InsightCount <= 0 {
		s.InsightCount = DefaultInsightCount
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.Currency == "" {
		s.Currency = core.DefaultCurrency
	}
	if s.Fallback == "" {
		s.Fallback = core.DefaultFallbackCategory
	}
	return s
}

// Suggestion is the outcome of a category suggestion.
type Suggestion struct {
	Category string
	// Fallback is set when the category did not come from the model.
	Fallback bool
}

// Assistant runs the language-model features. A nil provider yields a
// disabled assistant whose features answer with static text.
type Assistant struct {
	provider Provider
	settings Settings
	cache    *cache.LRUCache[string]
	group    singleflight.Group
	logger   *log.Logger
}

func NewAssistant(provider Provider, settings Settings) *Assistant {
	return &Assistant{
		provider: provider,
		settings: settings.withDefaults(),
		cache:    cache.NewLRUCache[string](suggestionCacheSize, suggestionCacheTTL),
		logger:   log.NewComponentLogger(log.ComponentAI),
	}
}

// Enabled reports whether a provider is configured.
func (a *Assistant) Enabled() bool { return a.provider != nil }

// Close releases the provider when it holds resources, such as the
// GigaChat token refresher.
func (a *Assistant) Close() error {
	if c, ok := a.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Cache exposes the suggestion cache for periodic cleanup.
func (a *Assistant) Cache() *cache.LRUCache[string] { return a.cache }

// SuggestCategory asks the model for one of categories. Anything that is not
// one of them, including failures, resolves to the fallback category.
func (a *Assistant) SuggestCategory(ctx context.Context, description string, categories []string) Suggestion {
	fallback := Suggestion{Category: a.settings.Fallback, Fallback: true}
	description = strings.TrimSpace(description)
	if description == "" || len(categories) == 0 || !a.Enabled() {
		return fallback
	}
	key := strings.ToLower(description) + "\x00" + strings.Join(categories, "\x1f")
	if v, ok := a.cache.Get(key); ok {
		return a.resolve(v, categories)
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		if v, ok := a.cache.Get(key); ok {
			return v, nil
		}
		ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
		defer cancel()
		answer, err := a.provider.Complete(ctx, Prompt{
			User:        suggestPrompt(description, categories, a.settings.Fallback),
			Model:       a.settings.SuggestModel,
			Temperature: 0,
			MaxTokens:   suggestMaxTokens,
		})
		if err != nil {
			return "", err
		}
		a.cache.Set(key, answer)
		return answer, nil
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "Category suggestion failed",
			log.FieldProvider, a.provider.Name(),
			log.FieldModel, a.settings.SuggestModel,
			log.FieldError, err)
		return fallback
	}
	s := a.resolve(v.(string), categories)
	a.logger.DebugContext(ctx, "Category suggested", log.FieldCategory, s.Category, "fallback", s.Fallback)
	return s
}

func (a *Assistant) resolve(answer string, categories []string) Suggestion {
	tax := core.Taxonomy{Categories: categories, Fallback: a.settings.Fallback}
	if c, ok := tax.Match(answer); ok {
		return Suggestion{Category: c, Fallback: c == a.settings.Fallback}
	}
	return Suggestion{Category: a.settings.Fallback, Fallback: true}
}

// Summary writes a short narrative of the digest.
func (a *Assistant) Summary(ctx context.Context, d report.Digest) string {
	if msg, ok := a.precheck(d); !ok {
		return msg
	}
	return a.narrate(ctx, "summary", Prompt{
		System:      advisorSystem,
		User:        summaryPrompt(d, a.settings.Currency),
		Model:       a.settings.SummaryModel,
		Temperature: summaryTemperature,
	})
}

// Insights lists the configured number of patterns found in the digest.
func (a *Assistant) Insights(ctx context.Context, d report.Digest) string {
	if msg, ok := a.precheck(d); !ok {
		return msg
	}
	return a.narrate(ctx, "insights", Prompt{
		System:      advisorSystem,
		User:        insightsPrompt(d, a.settings.Currency, a.settings.InsightCount),
		Model:       a.settings.SummaryModel,
		Temperature: summaryTemperature,
	})
}

// Ask answers a free-text question about the digest.
func (a *Assistant) Ask(ctx context.Context, d report.Digest, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return MsgNoQuestion
	}
	if msg, ok := a.precheck(d); !ok {
		return msg
	}
	return a.narrate(ctx, "ask", Prompt{
		System:      advisorSystem,
		User:        askPrompt(d, a.settings.Currency, question),
		Model:       a.settings.SummaryModel,
		Temperature: summaryTemperature,
	})
}

// InsightCount is the number of patterns Insights requests.
func (a *Assistant) InsightCount() int { return a.settings.InsightCount }

func (a *Assistant) precheck(d report.Digest) (string, bool) {
	if !a.Enabled() {
		return MsgDisabled, false
	}
	if d.Empty() {
		return MsgNoData, false
	}
	return "", true
}

func (a *Assistant) narrate(ctx context.Context, feature string, p Prompt) string {
	ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
	defer cancel()

	start := time.Now()
	answer, err := a.provider.Complete(ctx, p)
	if err != nil {
		a.logger.ErrorContext(ctx, "Language model request failed",
			"feature", feature,
			log.FieldProvider, a.provider.Name(),
			log.FieldModel, p.Model,
			log.FieldError, err)
		return MsgFailed
	}
	if answer == "" {
		return MsgEmptyAnswer
	}
	a.logger.InfoContext(ctx, "Language model answered",
		"feature", feature,
		log.FieldProvider, a.provider.Name(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return answer
}
