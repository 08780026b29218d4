package events

import "time"

// AnalysisStart is emitted before analyzing a query document.
type AnalysisStart struct {
	Query         string
	OperationName string
	OperationType string
}

// AnalysisFinish is emitted after an analysis completes, including analyses
// answered from the result cache.
type AnalysisFinish struct {
	Query         string
	OperationName string
	OperationType string
	Vertices      int
	Err           error
	Duration      time.Duration
	Cached        bool
}
