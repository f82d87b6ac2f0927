// Package sentiment implements the Sentiment Fuser (C2): a numeric
// fear/greed index with a process-wide TTL cache, and a hybrid score
// that optionally blends in an LLM read of recent news headlines.
package sentiment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

const (
	cnnURL         = "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"
	alternativeURL = "https://api.alternative.me/fng/"
	cacheTTL       = 10 * time.Minute
)

var urgencyOrder = map[domain.NewsUrgency]int{
	domain.UrgencyLow:      0,
	domain.UrgencyMedium:   1,
	domain.UrgencyHigh:     2,
	domain.UrgencyCritical: 3,
}

func classify(score float64) domain.SentimentClassification {
	switch {
	case score < 25:
		return domain.ClassificationExtremeFear
	case score < 45:
		return domain.ClassificationFear
	case score < 55:
		return domain.ClassificationNeutral
	case score < 75:
		return domain.ClassificationGreed
	default:
		return domain.ClassificationExtremeGreed
	}
}

// BuyMultiplier maps a fear/greed score to the risk gate's position
// sizing multiplier.
func BuyMultiplier(score float64) float64 {
	switch {
	case score < 25:
		return 1.5
	case score < 45:
		return 1.2
	case score < 55:
		return 1.0
	case score < 75:
		return 0.5
	default:
		return 0.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Headline is one news item a NewsProvider returns.
type Headline struct {
	Title       string
	Source      string
	URL         string
	PublishedAt time.Time
	Category    string
}

// HeadlineAnalysis is the LLM's read of one headline.
type HeadlineAnalysis struct {
	Title           string
	ImpactScore     float64 // [-100,100]
	Category        string
	AffectedSectors []string
	Urgency         domain.NewsUrgency
	Reasoning       string
}

// NewsProvider fetches recent headlines. A RSS/news-API collector
// implements this; partial source failure must not abort the fetch.
type NewsProvider interface {
	FetchHeadlines() ([]Headline, error)
}

// NewsAnalyzer turns headlines into a single market-impact read.
type NewsAnalyzer interface {
	Analyze(headlines []Headline) (overallScore float64, analyses []HeadlineAnalysis, err error)
}

// Fuser is the Sentiment Fuser: a TTL-cached numeric fetch plus an
// optional hybrid combination with LLM news sentiment.
type Fuser struct {
	httpClient *http.Client
	log        zerolog.Logger

	newsProvider NewsProvider
	newsAnalyzer NewsAnalyzer
	newsEnabled  bool

	numericWeight float64
	newsWeight    float64

	mu          sync.Mutex
	cached      *domain.SentimentSnapshot
	cachedAt    time.Time
	hybridCache *domain.HybridSentiment
	hybridAt    time.Time
}

// New constructs a Fuser. Passing a nil provider/analyzer disables the
// news leg entirely (as if no LLM API key were configured); Hybrid
// then always falls back to the numeric-only weighting.
func New(log zerolog.Logger, provider NewsProvider, analyzer NewsAnalyzer) *Fuser {
	return &Fuser{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		log:           log.With().Str("component", "sentiment").Logger(),
		newsProvider:  provider,
		newsAnalyzer:  analyzer,
		newsEnabled:   provider != nil && analyzer != nil,
		numericWeight: 0.5,
		newsWeight:    0.5,
	}
}

// Numeric returns the cached fear/greed snapshot, refetching if the
// cache is older than cacheTTL.
func (f *Fuser) Numeric() (domain.SentimentSnapshot, error) {
	f.mu.Lock()
	if f.cached != nil && time.Since(f.cachedAt) < cacheTTL {
		snap := *f.cached
		f.mu.Unlock()
		return snap, nil
	}
	f.mu.Unlock()

	snap, err := f.fetchCNN()
	if err != nil {
		f.log.Warn().Err(err).Msg("CNN fear/greed fetch failed, falling back to alternative.me")
		snap, err = f.fetchAlternative()
		if err != nil {
			return domain.SentimentSnapshot{}, apperrors.NewDataCollection("fear/greed index unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	f.mu.Lock()
	f.cached = &snap
	f.cachedAt = time.Now()
	f.mu.Unlock()
	return snap, nil
}

func (f *Fuser) fetchCNN() (domain.SentimentSnapshot, error) {
	resp, err := f.httpClient.Get(cnnURL)
	if err != nil {
		return domain.SentimentSnapshot{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SentimentSnapshot{}, err
	}
	var parsed struct {
		FearAndGreed struct {
			Score     float64 `json:"score"`
			Timestamp int64   `json:"timestamp"`
		} `json:"fear_and_greed"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.SentimentSnapshot{}, err
	}
	score := clamp(roundToInt(parsed.FearAndGreed.Score), 0, 100)
	return domain.SentimentSnapshot{
		Score:          score,
		Classification: classify(score),
		Source:         "cnn",
		Timestamp:      time.UnixMilli(parsed.FearAndGreed.Timestamp),
	}, nil
}

func (f *Fuser) fetchAlternative() (domain.SentimentSnapshot, error) {
	resp, err := f.httpClient.Get(alternativeURL)
	if err != nil {
		return domain.SentimentSnapshot{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SentimentSnapshot{}, err
	}
	var parsed struct {
		Data []struct {
			Value     string `json:"value"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.SentimentSnapshot{}, err
	}
	if len(parsed.Data) == 0 {
		return domain.SentimentSnapshot{}, fmt.Errorf("alternative.me returned no data")
	}
	var score float64
	fmt.Sscanf(parsed.Data[0].Value, "%f", &score)
	score = clamp(score, 0, 100)
	var ts int64
	fmt.Sscanf(parsed.Data[0].Timestamp, "%d", &ts)
	return domain.SentimentSnapshot{
		Score:          score,
		Classification: classify(score),
		Source:         "alternative",
		Timestamp:      time.Unix(ts, 0),
	}, nil
}

func roundToInt(f float64) float64 {
	return float64(int(f + 0.5))
}

// normalizeFearGreed remaps a [0,100] fear/greed score to [-100,100].
func normalizeFearGreed(score float64) float64 {
	return (score - 50) * 2.0
}

// InvalidateCache drops both cached snapshots, forcing the next
// Numeric/Hybrid call to refetch regardless of TTL. Used by the daily
// housekeeping job so a long-cached classification never survives
// past market open.
func (f *Fuser) InvalidateCache() {
	f.mu.Lock()
	f.cached = nil
	f.hybridCache = nil
	f.mu.Unlock()
}

// Hybrid returns the process-wide cached HybridSentiment, recomputing
// if the cache is stale. On any news-leg failure it falls back to a
// numeric-only result (weights 1.0/0.0) rather than failing the cycle.
func (f *Fuser) Hybrid() (domain.HybridSentiment, error) {
	f.mu.Lock()
	if f.hybridCache != nil && time.Since(f.hybridAt) < cacheTTL {
		h := *f.hybridCache
		f.mu.Unlock()
		return h, nil
	}
	f.mu.Unlock()

	numeric, err := f.Numeric()
	if err != nil {
		return domain.HybridSentiment{}, err
	}
	numericScore := normalizeFearGreed(numeric.Score)

	result := domain.HybridSentiment{
		NumericScore:  numericScore,
		NumericWeight: 1.0,
		NewsWeight:    0.0,
		NewsAvailable: false,
		FearGreedRaw:  numeric,
		HybridScore:   clamp(numericScore, -100, 100),
	}

	if f.newsEnabled {
		if headlines, err := f.newsProvider.FetchHeadlines(); err != nil || len(headlines) == 0 {
			if err != nil {
				f.log.Warn().Err(err).Msg("news headline fetch failed, using numeric-only sentiment")
			}
		} else if overall, analyses, err := f.newsAnalyzer.Analyze(headlines); err != nil {
			f.log.Warn().Err(err).Msg("news sentiment analysis failed, using numeric-only sentiment")
		} else {
			highest := domain.UrgencyLow
			for _, a := range analyses {
				if urgencyOrder[a.Urgency] > urgencyOrder[highest] {
					highest = a.Urgency
				}
			}
			newsScore := clamp(overall, -100, 100)
			result.NewsScore = &newsScore
			result.NumericWeight = f.numericWeight
			result.NewsWeight = f.newsWeight
			result.NewsAvailable = true
			result.HighestUrgency = &highest
			result.HybridScore = clamp(f.numericWeight*numericScore+f.newsWeight*newsScore, -100, 100)
		}
	}

	f.mu.Lock()
	f.hybridCache = &result
	f.hybridAt = time.Now()
	f.mu.Unlock()
	return result, nil
}
