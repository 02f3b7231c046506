package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/lang"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/resilience"
)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Timeout bounds each remote call; zero means only ctx bounds it.
	Timeout time.Duration
	Breaker *resilience.CircuitBreaker
	Metrics *metrics.Metrics
}

// Resolver produces the query actually used for matching.
type Resolver struct {
	translator Translator
	timeout    time.Duration
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewResolver creates a Resolver. A nil translator disables the remote call
// and every English-like query goes straight to the fallback dictionary.
func NewResolver(t Translator, opts ResolverOptions) *Resolver {
	return &Resolver{
		translator: t,
		timeout:    opts.Timeout,
		breaker:    opts.Breaker,
		metrics:    opts.Metrics,
		logger:     slog.Default().With("component", "resolver"),
	}
}

// Resolve returns the best-effort Hindi rendering of text, or the trimmed
// text itself.
func (r *Resolver) Resolve(ctx context.Context, text string) string {
	return r.ResolveDetailed(ctx, text).Text
}

// ResolveDetailed is Resolve plus how the answer was reached. Service errors
// are logged and absorbed.
func (r *Resolver) ResolveDetailed(ctx context.Context, text string) Resolution {
	trimmed := strings.TrimSpace(text)
	res := r.resolve(ctx, trimmed)
	if r.metrics != nil {
		r.metrics.TranslationsTotal.WithLabelValues(string(res.Source)).Inc()
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, trimmed string) Resolution {
	if trimmed == "" {
		return Resolution{Source: SourceNone}
	}
	if !lang.IsEnglishLike(trimmed) {
		return Resolution{Original: trimmed, Text: trimmed, Source: SourcePassthrough}
	}

	translated, err := r.callService(ctx, trimmed)
	if err == nil {
		translated = strings.TrimSpace(translated)
		if translated != "" && translated != trimmed {
			return Resolution{Original: trimmed, Text: translated, Source: SourceService}
		}
	} else if ctx.Err() == nil {
		logger.FromContext(ctx).Warn("translation unavailable, using fallback",
			"component", "resolver",
			"query", trimmed,
			"error", err,
		)
	}

	if hindi, ok := Fallback(trimmed); ok {
		return Resolution{Original: trimmed, Text: hindi, Source: SourceFallback}
	}
	return Resolution{Original: trimmed, Text: trimmed, Source: SourceIdentity}
}

func (r *Resolver) callService(ctx context.Context, text string) (string, error) {
	if r.translator == nil {
		return "", apperrors.ErrTranslationUnavailable
	}
	var out string
	call := func(ctx context.Context) error {
		translated, err := resilience.Bounded(ctx, r.timeout, "translate", func(ctx context.Context) (string, error) {
			return r.translator.Translate(ctx, text)
		})
		out = translated
		return err
	}
	var err error
	if r.breaker != nil {
		err = r.breaker.ExecuteContext(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
