package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"livefolio/internal/database/repositories"
)

// QuotePruneJob removes last-known quotes that have not been refreshed in a
// long time, so symbols dropped from the portfolio do not linger in the store.
type QuotePruneJob struct {
	quotes *repositories.QuoteRepository
	maxAge time.Duration
	log    zerolog.Logger
}

// NewQuotePruneJob creates the maintenance job
func NewQuotePruneJob(quotes *repositories.QuoteRepository, maxAge time.Duration, log zerolog.Logger) *QuotePruneJob {
	return &QuotePruneJob{
		quotes: quotes,
		maxAge: maxAge,
		log:    log.With().Str("job", "quote_prune").Logger(),
	}
}

// Name returns the job name
func (j *QuotePruneJob) Name() string {
	return "quote_prune"
}

// Run prunes stale entries
func (j *QuotePruneJob) Run() error {
	cutoff := time.Now().Add(-j.maxAge)
	n, err := j.quotes.PruneOlderThan(cutoff)
	if err != nil {
		return err
	}

	if n > 0 {
		j.log.Info().Int64("pruned", n).Time("cutoff", cutoff).Msg("Pruned stale last-known quotes")
	}
	return nil
}
