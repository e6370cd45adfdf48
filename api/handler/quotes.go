package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/cache"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/session"
	"github.com/use-agent/pricewatch/webhook"
)

// Quotes owns the quote jobs and the single worker that resolves them.
// Jobs run strictly one after another, each over its own session, so no
// two browser sessions are ever open at once.
type Quotes struct {
	acquire  session.Factory
	resolver *engine.Resolver
	cache    *cache.Cache
	cfg      config.JobsConfig

	mu    sync.RWMutex
	jobs  map[string]*models.QuoteJob
	queue chan *models.QuoteJob

	// lastRun is when the worker last finished browsing. Only the worker
	// touches it.
	lastRun time.Time

	now   func() time.Time
	sleep engine.SleepFunc
}

// NewQuotes creates the job store. Call Start to begin processing.
func NewQuotes(acquire session.Factory, resolver *engine.Resolver, cc *cache.Cache, cfg config.JobsConfig) *Quotes {
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}
	return &Quotes{
		acquire:  acquire,
		resolver: resolver,
		cache:    cc,
		cfg:      cfg,
		jobs:     make(map[string]*models.QuoteJob),
		queue:    make(chan *models.QuoteJob, size),
		now:      time.Now,
		sleep:    engine.Sleep,
	}
}

// Start launches the worker and the retention sweep. Both stop when ctx
// is done; the job being processed at that moment is finished first.
func (q *Quotes) Start(ctx context.Context) {
	go q.work(ctx)
	if q.cfg.Retention > 0 {
		go q.pruneLoop(ctx)
	}
}

// Queued reports jobs waiting for the worker.
func (q *Quotes) Queued() int { return len(q.queue) }

// Capacity is the number of jobs that may wait for the worker.
func (q *Quotes) Capacity() int { return cap(q.queue) }

// Post returns a handler for POST /api/v1/quotes.
func (q *Quotes) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QuoteJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.QuoteJobResponse{
				Status: models.JobFailed,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		symbols, err := q.normalize(req.Symbols)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.QuoteJobResponse{
				Status: models.JobFailed,
				Error:  err.ToDetail(),
			})
			return
		}

		job := &models.QuoteJob{
			ID:            "quotes-" + randomID(),
			Status:        models.JobQueued,
			Symbols:       symbols,
			MaxAgeMs:      req.MaxAgeMs,
			Total:         len(symbols),
			Quotes:        make([]models.Quote, len(symbols)),
			CreatedAt:     q.now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}

		q.mu.Lock()
		q.jobs[job.ID] = job
		q.mu.Unlock()

		select {
		case q.queue <- job:
		default:
			q.mu.Lock()
			delete(q.jobs, job.ID)
			q.mu.Unlock()
			c.JSON(http.StatusServiceUnavailable, models.QuoteJobResponse{
				Status: models.JobFailed,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeQueueFull,
					Message: "too many queued jobs, retry later",
				},
			})
			return
		}

		c.JSON(http.StatusOK, models.QuoteJobResponse{
			ID:     job.ID,
			Status: models.JobProcessing,
			Total:  job.Total,
		})
	}
}

// Get returns a handler for GET /api/v1/quotes/:id.
func (q *Quotes) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, ok := q.status(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "quote job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (q *Quotes) normalize(raw []string) ([]string, *models.PriceError) {
	if len(raw) > q.cfg.MaxSymbols {
		return nil, models.NewPriceError(models.ErrCodeInvalidInput,
			fmt.Sprintf("maximum %d symbols per job", q.cfg.MaxSymbols), nil)
	}
	out := make([]string, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, models.NewPriceError(models.ErrCodeInvalidInput,
				fmt.Sprintf("symbol %d is blank", i), nil)
		}
		out[i] = s
	}
	return out, nil
}

// status snapshots a job. Queued jobs report as processing.
func (q *Quotes) status(id string) (models.QuoteJobStatusResponse, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return models.QuoteJobStatusResponse{}, false
	}
	return snapshotLocked(job), true
}

// snapshotLocked copies the visible state of job. The caller holds q.mu.
func snapshotLocked(job *models.QuoteJob) models.QuoteJobStatusResponse {
	status := job.Status
	if status == models.JobQueued {
		status = models.JobProcessing
	}
	quotes := make([]models.Quote, 0, job.Completed)
	for _, qt := range job.Quotes {
		if qt.Symbol != "" {
			quotes = append(quotes, qt)
		}
	}
	return models.QuoteJobStatusResponse{
		ID:        job.ID,
		Status:    status,
		Completed: job.Completed,
		Total:     job.Total,
		Quotes:    quotes,
	}
}

func (q *Quotes) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.queue:
			q.process(ctx, job)
		}
	}
}

// process resolves one job. Fresh cached quotes are reused; the rest go
// through a Runner in one session.
func (q *Quotes) process(ctx context.Context, job *models.QuoteJob) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("quote job panic", "id", job.ID, "code", models.ErrCodeInternal, "panic", rec)
			q.finish(job)
		}
	}()

	q.mu.Lock()
	job.Status = models.JobProcessing
	q.mu.Unlock()

	maxAge := time.Duration(job.MaxAgeMs) * time.Millisecond
	var pending []int
	for i, sym := range job.Symbols {
		cached, ok := q.cache.Get(sym, maxAge)
		if !ok {
			pending = append(pending, i)
			continue
		}
		cached.Symbol = sym
		q.mu.Lock()
		job.Quotes[i] = cached
		job.Completed++
		q.mu.Unlock()
	}

	if len(pending) > 0 {
		symbols := make([]string, len(pending))
		for k, i := range pending {
			symbols[k] = job.Symbols[i]
		}

		// Keep the politeness gap across jobs too, since the worker's
		// sessions all hit the same providers.
		if !q.lastRun.IsZero() {
			if wait := q.resolver.Timing().Politeness - q.now().Sub(q.lastRun); wait > 0 {
				_ = q.sleep(ctx, wait)
			}
		}

		runner := engine.NewRunner(q.acquire, q.resolver)
		runner.OnQuote = func(k int, qt models.Quote) {
			q.cache.Set(qt)
			q.mu.Lock()
			job.Quotes[pending[k]] = qt
			job.Completed++
			q.mu.Unlock()
		}
		_, err := runner.Run(ctx, symbols)
		q.lastRun = q.now()
		if err != nil {
			slog.Error("quote job could not acquire a session", "id", job.ID, "error", err)
		}
	}

	q.finish(job)
}

// finish fills unresolved slots with the sentinel, sets the final status
// and fires the webhook.
func (q *Quotes) finish(job *models.QuoteJob) {
	q.mu.Lock()
	failed := 0
	for i, qt := range job.Quotes {
		if qt.Symbol == "" {
			job.Quotes[i] = models.ErrorQuote(job.Symbols[i], q.now())
			qt = job.Quotes[i]
		}
		if qt.Failed() {
			failed++
		}
	}
	job.Completed = job.Total

	switch {
	case failed == job.Total:
		job.Status = models.JobFailed
	case failed > 0:
		job.Status = models.JobPartial
	default:
		job.Status = models.JobCompleted
	}
	snap := snapshotLocked(job)
	q.mu.Unlock()

	slog.Info("quote job finished",
		"id", job.ID,
		"status", job.Status,
		"failed", failed,
		"total", job.Total,
	)

	if job.WebhookURL != "" {
		webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      webhook.EventQuotesCompleted,
			JobID:     job.ID,
			Timestamp: q.now().Unix(),
			Data:      snap,
		})
	}
}

// Prune drops finished jobs created before now minus the retention.
func (q *Quotes) Prune() int {
	cutoff := q.now().Add(-q.cfg.Retention).Unix()
	removed := 0
	q.mu.Lock()
	for id, job := range q.jobs {
		if job.CreatedAt >= cutoff {
			continue
		}
		if job.Status == models.JobQueued || job.Status == models.JobProcessing {
			continue
		}
		delete(q.jobs, id)
		removed++
	}
	q.mu.Unlock()
	return removed
}

func (q *Quotes) pruneLoop(ctx context.Context) {
	iv := q.cfg.Retention / 12
	if iv < time.Second {
		iv = time.Second
	}
	ticker := time.NewTicker(iv)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := q.Prune(); n > 0 {
				slog.Debug("pruned quote jobs", "count", n)
			}
		}
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
