package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/httpx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type instrumented struct {
	next  Generator
	cfg   Config
	retry httpx.RetryPolicy
	log   *logger.Logger
}

// Instrument bounds each call by cfg.Timeout, retries transient upstream
// failures up to cfg.MaxRetries times and records a span, a log line and the
// llm request metrics.
func Instrument(next Generator, cfg Config, log *logger.Logger) Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &instrumented{
		next: next,
		cfg:  cfg,
		retry: httpx.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   8 * time.Second,
		},
		log: log.With("client", "LLM", "provider", cfg.Provider),
	}
}

func (g *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	ctx, span := observability.Tracer().Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.cfg.Provider),
		attribute.String("llm.model", g.cfg.Model),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)

	start := time.Now()
	var out string
	attempts := 0
	err := httpx.Do(ctx, g.retry, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		if attempt > 0 {
			g.log.Debug("Retrying LLM request", "attempt", attempts)
		}
		var err error
		out, err = g.next.Generate(ctx, prompt)
		return err
	})
	dur := time.Since(start)
	span.SetAttributes(attribute.Int("llm.attempts", attempts))

	status := "ok"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		g.log.Warn("LLM request failed", "model", g.cfg.Model, "attempts", attempts, "duration_ms", dur.Milliseconds(), "error", err)
	} else {
		g.log.Debug("LLM request", "model", g.cfg.Model, "attempts", attempts, "duration_ms", dur.Milliseconds(), "answer_chars", len(out))
	}
	observability.Current().ObserveLLMRequest(g.cfg.Provider, g.cfg.Model, status, dur)
	return out, err
}
