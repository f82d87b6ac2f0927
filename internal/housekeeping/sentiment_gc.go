package housekeeping

// SentimentCache is the subset of the Sentiment Fuser the daily cache
// GC job depends on.
type SentimentCache interface {
	InvalidateCache()
}

// SentimentCacheGCJob forces a fresh fear/greed and hybrid fetch once
// a day, so a stale TTL-expired-but-not-yet-refetched snapshot never
// carries across a market open.
type SentimentCacheGCJob struct {
	cache SentimentCache
}

// NewSentimentCacheGCJob constructs the job.
func NewSentimentCacheGCJob(cache SentimentCache) *SentimentCacheGCJob {
	return &SentimentCacheGCJob{cache: cache}
}

func (j *SentimentCacheGCJob) Name() string { return "sentiment-cache-gc" }

func (j *SentimentCacheGCJob) Run() error {
	j.cache.InvalidateCache()
	return nil
}
