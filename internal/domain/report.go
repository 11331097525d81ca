package domain

import "time"

// Timing breaks a page navigation into its network phases. All durations
// are wall-clock time observed by the engine for a single attempt.
type Timing struct {
	// DNS is the time spent resolving the target host.
	DNS time.Duration `json:"dns"`

	// Connect is the time spent establishing the TCP connection.
	Connect time.Duration `json:"connect"`

	// TLS is the time spent in the TLS handshake; zero for plain HTTP.
	TLS time.Duration `json:"tls"`

	// TTFB is the time from sending the request to receiving the first
	// response byte.
	TTFB time.Duration `json:"ttfb"`

	// Transfer is the time spent downloading the response body.
	Transfer time.Duration `json:"transfer"`

	// Total is the complete navigation time from request start to the
	// last body byte.
	Total time.Duration `json:"total"`
}

// Report is the structured result of one successful audit: what the engine
// measured when navigating to the target URL under the requested device
// profile. Reports are immutable once produced.
type Report struct {
	URL           string     `json:"url"`
	FinalURL      string     `json:"final_url"`
	Device        DeviceMode `json:"device"`
	FetchedAt     time.Time  `json:"fetched_at"`
	StatusCode    int        `json:"status_code"`
	Redirects     int        `json:"redirects"`
	Timing        Timing     `json:"timing"`
	TransferBytes int64      `json:"transfer_bytes"`

	// Score is the overall performance score in [0,1], derived from the
	// timing phases with log-normal scoring curves.
	Score float64 `json:"score"`
}

// Grade buckets a score the way performance tooling conventionally does:
// 0.90 and above is "good", 0.50 and above is "needs-improvement",
// anything below is "poor".
func (r *Report) Grade() string {
	switch {
	case r.Score >= 0.9:
		return "good"
	case r.Score >= 0.5:
		return "needs-improvement"
	default:
		return "poor"
	}
}
