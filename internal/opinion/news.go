package opinion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradewind/internal/domain"
	"tradewind/internal/util"
)

// Compile-time interface check.
var _ Provider = (*NewsProvider)(nil)

// NewsProvider derives a stance from recent headlines fetched through the
// Alpaca news API. Headlines are scored by keyword; the aggregate score maps
// to BUY, SELL, or HOLD with a confidence proportional to agreement.
type NewsProvider struct {
	client   *marketdata.Client
	limiter  *util.RateLimiter
	lookback time.Duration
	log      *slog.Logger
}

// NewNewsProvider creates a NewsProvider with the given credentials.
// lookback bounds how old a headline may be to contribute to the stance.
func NewNewsProvider(apiKey, apiSecret string, lookback time.Duration, rateLimitPerMin int) *NewsProvider {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &NewsProvider{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		limiter:  util.NewRateLimiter(rateLimitPerMin),
		lookback: lookback,
		log:      slog.Default().With("opinion", "news"),
	}
}

// Current fetches recent headlines and aggregates them into an opinion.
// No recent news yields a nil opinion, not an error.
func (p *NewsProvider) Current(ctx context.Context, instrumentID string) (*domain.Opinion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	var articles []marketdata.News
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		articles, err = p.client.GetNews(marketdata.GetNewsRequest{
			Symbols:    []string{instrumentID},
			Start:      end.Add(-p.lookback),
			End:        end,
			TotalLimit: 50,
			Sort:       marketdata.SortDesc,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching news for %s: %w", instrumentID, err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	score := 0
	for _, a := range articles {
		score += ScoreHeadline(a.Headline)
	}

	stance := domain.StanceHold
	switch {
	case score > 0:
		stance = domain.StanceBuy
	case score < 0:
		stance = domain.StanceSell
	}

	confidence := float64(abs(score)) / float64(len(articles))
	if confidence > 1 {
		confidence = 1
	}

	p.log.Debug("news stance",
		"instrument", instrumentID,
		"articles", len(articles),
		"score", score,
		"stance", stance,
	)
	return &domain.Opinion{
		InstrumentID: instrumentID,
		Stance:       stance,
		Source:       "news",
		Confidence:   confidence,
	}, nil
}

var (
	bullishWords = []string{
		"beats", "surges", "soars", "upgrade", "upgraded", "record",
		"rally", "jumps", "strong", "raises guidance", "outperform", "buyback",
	}
	bearishWords = []string{
		"misses", "plunges", "sinks", "downgrade", "downgraded", "lawsuit",
		"recall", "falls", "weak", "cuts guidance", "underperform", "probe",
	}
)

// ScoreHeadline returns +1 for a bullish headline, -1 for a bearish one, and
// 0 when no keyword matches or both sides match.
func ScoreHeadline(headline string) int {
	h := strings.ToLower(headline)
	score := 0
	for _, w := range bullishWords {
		if strings.Contains(h, w) {
			score++
			break
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(h, w) {
			score--
			break
		}
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
