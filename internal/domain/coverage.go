package domain

import "time"

// Confidence grades how certain a single availability determination is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weight returns the scoring weight of a confidence level.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.3
	default:
		return 0.0
	}
}

// Source identifies where an availability record came from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceStatic Source = "static"
	SourceCache  Source = "cache"
)

// ServiceAvailability is one provider's verdict for one service type.
// Immutable once produced.
type ServiceAvailability struct {
	ServiceType string     `json:"service_type"`
	ProviderID  string     `json:"provider_id"`
	Available   bool       `json:"available"`
	Signal      *float64   `json:"signal,omitempty"`
	MaxSpeedMbps *int      `json:"max_speed_mbps,omitempty"`
	Confidence  Confidence `json:"confidence"`
	Source      Source     `json:"source"`
}

// ProviderCoverageResult wraps a provider's full outcome for one query.
// Failed calls still produce a result so the aggregate can report them.
type ProviderCoverageResult struct {
	ProviderID   string                `json:"provider_id"`
	Success      bool                  `json:"success"`
	ResponseTime time.Duration         `json:"response_time_ns"`
	Source       Source                `json:"source"`
	Services     []ServiceAvailability `json:"services,omitempty"`
	Error        string                `json:"error,omitempty"`
	ErrorKind    ProviderErrorKind     `json:"error_kind,omitempty"`
}

// ServiceRecommendation ranks one (service type, provider) offering.
type ServiceRecommendation struct {
	ServiceType string   `json:"service_type"`
	ProviderID  string   `json:"provider_id"`
	Score       float64  `json:"score"`
	Reasons     []string `json:"reasons"`
}

// ResultMetadata describes how an aggregated result was produced.
type ResultMetadata struct {
	RequestID      string        `json:"request_id"`
	SourcesUsed    []string      `json:"sources_used"`
	FromCache      bool          `json:"from_cache"`
	LastResort     bool          `json:"last_resort,omitempty"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// AggregatedResult is the engine's unified answer for one query.
type AggregatedResult struct {
	// Services holds the representative availability per service type
	// after merging all provider results.
	Services map[string]ServiceAvailability `json:"services"`

	// Providers lists every participating provider's outcome, failures
	// included.
	Providers []ProviderCoverageResult `json:"providers"`

	Recommendations []ServiceRecommendation `json:"recommendations"`

	Metadata ResultMetadata `json:"metadata"`
}
