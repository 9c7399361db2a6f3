package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the search and suggestion pipelines.
var (
	// Search metrics
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "later_search_requests_total",
		Help: "Total number of search requests by search type and status",
	}, []string{"search_type", "status"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "later_search_duration_seconds",
		Help:    "Search request duration in seconds by search type",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"search_type"})

	searchResultsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "later_search_results_returned",
		Help:    "Number of results returned per search request",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	}, []string{"search_type"})

	// Suggestion metrics
	suggestionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "later_suggestion_requests_total",
		Help: "Total number of context-suggestion requests by context type and status",
	}, []string{"context_type", "status"})

	suggestionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "later_suggestion_duration_seconds",
		Help:    "Context-suggestion request duration in seconds by context type",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"context_type"})

	// Strategy-level failures inside hybrid search (partial results still served)
	searchStrategyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "later_search_strategy_failures_total",
		Help: "Scoring strategy failures absorbed during hybrid search",
	}, []string{"strategy"})

	// Full-text backend availability
	fulltextBackendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "later_fulltext_backend_errors_total",
		Help: "Full-text backend failures (timeouts and query errors, all fail open)",
	})

	// Pattern learning
	patternsLearnedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "later_patterns_learned_total",
		Help: "Context patterns created or reinforced by the learner",
	}, []string{"context_type", "outcome"})

	// Capture pipeline
	capturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "later_captures_total",
		Help: "Content captures by source and status",
	}, []string{"source", "status"})
)

// RecordSearch records one completed search request.
func RecordSearch(searchType, status string, seconds float64, resultCount int) {
	searchRequestsTotal.WithLabelValues(searchType, status).Inc()
	if status == "success" {
		searchDuration.WithLabelValues(searchType).Observe(seconds)
		searchResultsReturned.WithLabelValues(searchType).Observe(float64(resultCount))
	}
}

// RecordSuggestion records one completed context-suggestion request.
func RecordSuggestion(contextType, status string, seconds float64) {
	suggestionRequestsTotal.WithLabelValues(contextType, status).Inc()
	if status == "success" {
		suggestionDuration.WithLabelValues(contextType).Observe(seconds)
	}
}

// RecordStrategyFailure records a scoring strategy that panicked or errored
// during a hybrid search.
func RecordStrategyFailure(strategy string) {
	searchStrategyFailures.WithLabelValues(strategy).Inc()
}

// RecordFullTextBackendError records a full-text backend failure.
func RecordFullTextBackendError() {
	fulltextBackendErrors.Inc()
}

// RecordPatternLearned records a pattern learner outcome ("created" or
// "reinforced").
func RecordPatternLearned(contextType, outcome string) {
	patternsLearnedTotal.WithLabelValues(contextType, outcome).Inc()
}

// RecordCapture records a content capture attempt.
func RecordCapture(source, status string) {
	capturesTotal.WithLabelValues(source, status).Inc()
}
