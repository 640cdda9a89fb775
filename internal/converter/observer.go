package converter

import (
	"fmt"
	"io"
	"sync"

	"ecgprep/pkg/contracts/domain"
)

// Conversion event types broadcast over the hub.
const (
	EventRunStarted  = "conversion:started"
	EventRowFinished = "conversion:progress"
	EventRunFinished = "conversion:completed"
)

type nopObserver struct{}

func (nopObserver) RunStarted(string, int) {}
func (nopObserver) RowFinished(string, int, domain.RowResult) {}
func (nopObserver) RunFinished(*domain.ConversionReport) {}

// ConsoleObserver prints human readable progress lines.
type ConsoleObserver struct {
	out io.Writer
}

// NewConsoleObserver writes progress to out.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out}
}

func (o *ConsoleObserver) RunStarted(_ string, total int) {
	fmt.Fprintf(o.out, "Processing ECG data (%d records)...\n", total)
}

func (o *ConsoleObserver) RowFinished(_ string, total int, res domain.RowResult) {
	fmt.Fprintf(o.out, "Processing record %d of %d: %s\n", res.Index+1, total, res.ID)
	if res.Err != nil {
		fmt.Fprintf(o.out, "Error processing record %s: %v\n", res.ID, res.Err)
	}
}

func (o *ConsoleObserver) RunFinished(report *domain.ConversionReport) {
	fmt.Fprintf(o.out, "Processing complete! %d converted, %d failed\n",
		report.Summary.Converted, report.Summary.Failed)
}

// HubObserver broadcasts progress events to websocket clients.
type HubObserver struct {
	hub WebSocketHub

	mu       sync.Mutex
	trackers map[string]*ProgressTracker
}

// NewHubObserver creates an observer publishing to hub.
func NewHubObserver(hub WebSocketHub) *HubObserver {
	return &HubObserver{hub: hub, trackers: make(map[string]*ProgressTracker)}
}

func (o *HubObserver) RunStarted(runID string, total int) {
	o.mu.Lock()
	o.trackers[runID] = NewProgressTracker(total)
	o.mu.Unlock()

	o.hub.BroadcastUpdate(EventRunStarted, "convert", "running", map[string]interface{}{
		"run_id": runID,
		"total":  total,
	})
}

func (o *HubObserver) RowFinished(runID string, total int, res domain.RowResult) {
	o.mu.Lock()
	tracker := o.trackers[runID]
	o.mu.Unlock()
	if tracker == nil {
		return
	}
	tracker.Increment(res.Err != nil)

	meta := map[string]interface{}{
		"run_id":   runID,
		"index":    res.Index,
		"id":       res.ID,
		"total":    total,
		"progress": int(tracker.Percentage()),
		"eta":      tracker.GetETA(),
	}
	status := domain.StatusConverted
	if res.Err != nil {
		status = domain.StatusFailed
		meta["error"] = res.Err.Error()
	}
	o.hub.BroadcastUpdate(EventRowFinished, "convert", status, meta)
}

func (o *HubObserver) RunFinished(report *domain.ConversionReport) {
	o.mu.Lock()
	delete(o.trackers, report.RunID)
	o.mu.Unlock()

	o.hub.BroadcastUpdate(EventRunFinished, "convert", "completed", map[string]interface{}{
		"run_id":  report.RunID,
		"summary": report.Summary,
	})
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) RunStarted(runID string, total int) {
	for _, o := range m {
		o.RunStarted(runID, total)
	}
}

func (m MultiObserver) RowFinished(runID string, total int, res domain.RowResult) {
	for _, o := range m {
		o.RowFinished(runID, total, res)
	}
}

func (m MultiObserver) RunFinished(report *domain.ConversionReport) {
	for _, o := range m {
		o.RunFinished(report)
	}
}
