package insights

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/ai"
	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/KaramelBytes/sheetdash/internal/utils"
)

// ErrNoRuntime is logged when no chat backend is configured.
var ErrNoRuntime = errors.New("no ai runtime configured")

// Options tune the chat request. Zero values use the defaults.
type Options struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	MaxPromptTokens int
	Timeout         time.Duration
}

// Analyzer produces insight payloads, preferring the chat runtime and
// falling back to local heuristics on any failure.
type Analyzer struct {
	runtime ai.Runtime
	opts    Options
	logger  *zap.Logger
}

// NewAnalyzer returns an Analyzer. A nil runtime means every call uses the fallback.
func NewAnalyzer(rt ai.Runtime, opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxPromptTokens <= 0 {
		opts.MaxPromptTokens = 6000
	}
	return &Analyzer{runtime: rt, opts: opts, logger: logger}
}

// Analyze never fails: the returned payload is either the model's answer or
// the heuristic fallback. The reason for a fallback is logged.
func (a *Analyzer) Analyze(ctx context.Context, name string, ds *dataset.Dataset) *Payload {
	profiles := analysis.ClassifyAll(ds)
	p, err := a.ask(ctx, name, ds, profiles)
	if err != nil {
		a.logger.Warn("ai analysis unavailable, using fallback",
			zap.String("file", name),
			zap.String("reason", ai.FailureReason(err)),
			zap.Error(err))
		return Fallback(ds, profiles)
	}
	return p
}

func (a *Analyzer) ask(ctx context.Context, name string, ds *dataset.Dataset, profiles []analysis.ColumnProfile) (*Payload, error) {
	if a.runtime == nil {
		return nil, ErrNoRuntime
	}
	if ds.Empty() {
		return nil, errors.New("dataset is empty")
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	system, user := BuildPrompt(name, ds, profiles)
	user = utils.TruncateToTokenLimit(user, a.opts.MaxPromptTokens)
	a.logger.Debug("requesting ai insights",
		zap.String("model", a.opts.Model),
		zap.Int("prompt_tokens_est", utils.CountTokens(system)+utils.CountTokens(user)))

	start := time.Now()
	resp, err := a.runtime.Generate(ctx, ai.GenerateRequest{
		Model: a.opts.Model,
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("ai insights received",
		zap.String("request_id", resp.RequestID),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	p, err := ParseResponse(resp.Text())
	if err != nil {
		return nil, err
	}
	p.GeneratedAt = time.Now().UTC()
	p.Normalize(ds.Headers)
	return p, nil
}
