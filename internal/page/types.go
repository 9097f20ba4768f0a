package page

import "time"

// Options defines per-page settings applied at creation time.
type Options struct {
	ViewportWidth  int           // Reported viewport width in px
	ViewportHeight int           // Reported viewport height in px
	UserAgent      string        // User-Agent header for navigation
	MemoryHintMB   int64         // Soft heap hint for the script VM
	CPUHint        float64       // Soft CPU weight, recorded for placement
	FetchTimeout   time.Duration // Per-navigation HTTP timeout
}

// DefaultOptions returns production defaults for a page session.
func DefaultOptions() Options {
	return Options{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		UserAgent:      "Mozilla/5.0 (ClientPilot Automation/1.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MemoryHintMB:   50,
		CPUHint:        1.0,
		FetchTimeout:   30 * time.Second,
	}
}

// Snapshot is the serialized state of a page at capture time.
type Snapshot struct {
	PageID     string    `json:"page_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Viewport   [2]int    `json:"viewport"`
	CapturedAt time.Time `json:"captured_at"`
	HTML       string    `json:"html"`
}
