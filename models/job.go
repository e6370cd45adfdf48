package models

// QuoteJobRequest is the payload for POST /api/v1/quotes.
type QuoteJobRequest struct {
	// Symbols is the ordered list of tickers to resolve. Required.
	Symbols []string `json:"symbols" binding:"required,min=1"`

	// MaxAgeMs lets the job reuse quotes resolved within the last MaxAgeMs
	// milliseconds instead of visiting the providers again. 0 disables reuse.
	MaxAgeMs int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`

	// WebhookURL receives a "quotes.completed" event when the job finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// QuoteJobResponse is the immediate response for POST /api/v1/quotes.
type QuoteJobResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Total  int          `json:"total"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// QuoteJobStatusResponse is the response for GET /api/v1/quotes/:id.
type QuoteJobStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Quotes    []Quote `json:"quotes,omitempty"`
}

// Job statuses.
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobPartial    = "partial"
	JobFailed     = "failed"
)

// QuoteJob tracks one queued or finished batch of symbols.
type QuoteJob struct {
	ID        string
	Status    string
	Symbols   []string
	MaxAgeMs  int
	Total     int
	Completed int
	Quotes    []Quote
	CreatedAt int64 // unix timestamp

	WebhookURL    string
	WebhookSecret string
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string   `json:"status"` // "healthy" or "degraded"
	Uptime    string   `json:"uptime"`
	Engine    string   `json:"engine"`
	Providers []string `json:"providers"`
	Queued    int      `json:"queued"`
	Version   string   `json:"version"`
}
