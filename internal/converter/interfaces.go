package converter

import (
	"ecgprep/pkg/contracts/domain"
)

// RecordLoader returns the (leads, samples) waveform for a manifest path field.
type RecordLoader interface {
	LoadRecord(path string) (domain.RawSignal, error)
}

// SignalWriter persists a converted waveform.
type SignalWriter interface {
	EnsureDir(dir string) error
	WriteSignal(outputPath string, sig domain.RawSignal) (*domain.ConvertedRecord, error)
}

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// Observer is told about run progress. Calls happen on the converting
// goroutine, in row order.
type Observer interface {
	RunStarted(runID string, total int)
	RowFinished(runID string, total int, res domain.RowResult)
	RunFinished(report *domain.ConversionReport)
}
