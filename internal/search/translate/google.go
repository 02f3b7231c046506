package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// GoogleTranslator calls the public translate_a/single endpoint. Outbound
// calls are paced by a token bucket shared by every caller.
type GoogleTranslator struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGoogleTranslator builds a translator from cfg. client may be nil.
func NewGoogleTranslator(cfg config.TranslateConfig, client *http.Client, m *metrics.Metrics) *GoogleTranslator {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &GoogleTranslator{
		endpoint: cfg.Endpoint,
		source:   cfg.SourceLang,
		target:   cfg.TargetLang,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		metrics:  m,
		logger:   slog.Default().With("component", "google-translator"),
	}
}

// Translate returns text in the target language, waiting for the shared quota first.
func (g *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for translate quota: %w", err)
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", g.source)
	q.Set("tl", g.target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building translate request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := g.client.Do(req)
	if g.metrics != nil {
		g.metrics.TranslationLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("calling translate service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", apperrors.Newf(apperrors.ErrTranslationUnavailable, http.StatusBadGateway,
			"translate service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading translate response: %w", err)
	}
	translated, err := parseGoogleResponse(body)
	if err != nil {
		return "", err
	}
	g.logger.Debug("translated", "text", text, "translated", translated, "duration", time.Since(start))
	return translated, nil
}

// parseGoogleResponse concatenates the first element of every segment in
// the response's first array: [[["नमस्ते","hello",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var data []any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decoding translate response: %w: %v", apperrors.ErrTranslationUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty translate response: %w", apperrors.ErrTranslationUnavailable)
	}
	segments, ok := data[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translate response shape: %w", apperrors.ErrTranslationUnavailable)
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
