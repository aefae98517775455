package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Number of sessions to run
	Frames     int           // Frames per session
	BatchSize  int           // Frames per upload batch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for collected reports
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Landmark mirrors the wire shape of a single joint observation.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Frame mirrors the wire shape of a pose frame.
type Frame struct {
	Index       int                 `json:"index"`
	TimestampMS float64             `json:"timestamp_ms"`
	Landmarks   map[string]Landmark `json:"landmarks"`
}

// sessionResponse is the payload returned when a session is opened.
type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// framesResponse reports batch intake counts.
type framesResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// reportSummary extracts the fields the run verifies from a finished report.
type reportSummary struct {
	SessionID string `json:"session_id"`
	Profile   struct {
		OverallScore float64 `json:"overall_score"`
		Grade        string  `json:"grade"`
	} `json:"profile"`
	Frames int `json:"frames"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsFailed    int
	FramesAccepted    int
	FramesDropped     int
	ReportsRetrieved  int
	Grades            map[string]int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
