// Package observability provides hooks for layout engine events.
//
// The partition engine is pure and never logs on its own. Instead a table is
// constructed with a [TableHooks] implementation that receives an event for
// every relayout, every resize candidate tried and every partition evicted by
// a capacity or location change. The CLI and the HTTP server attach hooks to
// surface what the engine did.
//
// # Usage
//
//	hooks := observability.NewLogHooks(logger)
//	table := partition.New(dev, partition.WithHooks(hooks))
//
// Tables built without hooks use [NoopTableHooks]. [Metrics] turns the same
// events into Prometheus counters, and [MultiHooks] sends them to several
// implementations at once:
//
//	hooks := observability.MultiHooks{observability.NewLogHooks(logger), metrics}
package observability

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Table Hooks
// =============================================================================

// TableHooks receives events from a partition table.
type TableHooks interface {
	// OnRelayout fires after the reordering and offset passes complete.
	// moved is the number of partitions whose table position changed.
	OnRelayout(partitions, moved int)

	// OnResizeAttempt fires for every candidate size the resize search tries.
	OnResizeAttempt(name string, candidate int64, fits bool)

	// OnResizeComplete fires once per resize call with the committed size,
	// or with err set when the table was rolled back.
	OnResizeComplete(name string, requested, committed int64, err error)

	// OnEvict fires for every partition removed to satisfy a capacity or
	// partition table location change.
	OnEvict(name string, size, capacity int64)
}

// =============================================================================
// No-op Implementation
// =============================================================================

// NoopTableHooks is a no-op implementation of TableHooks.
type NoopTableHooks struct{}

func (NoopTableHooks) OnRelayout(int, int)                          {}
func (NoopTableHooks) OnResizeAttempt(string, int64, bool)          {}
func (NoopTableHooks) OnResizeComplete(string, int64, int64, error) {}
func (NoopTableHooks) OnEvict(string, int64, int64)                 {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks reports table events as structured log lines. Per-candidate
// resize attempts and relayouts are logged at debug level; evictions are
// warnings because they discard user data from the table.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks writing to logger. A nil logger uses log.Default().
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger}
}

func (h *LogHooks) OnRelayout(partitions, moved int) {
	h.logger.Debug("relayout", "partitions", partitions, "moved", moved)
}

func (h *LogHooks) OnResizeAttempt(name string, candidate int64, fits bool) {
	h.logger.Debug("resize candidate", "name", name, "size", hex(candidate), "fits", fits)
}

func (h *LogHooks) OnResizeComplete(name string, requested, committed int64, err error) {
	if err != nil {
		h.logger.Warn("resize rolled back", "name", name, "requested", hex(requested), "err", err)
		return
	}
	h.logger.Info("resized partition", "name", name, "requested", hex(requested), "size", hex(committed))
}

func (h *LogHooks) OnEvict(name string, size, capacity int64) {
	h.logger.Warn("evicted partition", "name", name, "size", hex(size), "capacity", hex(capacity))
}

func hex(v int64) string {
	return fmt.Sprintf("0x%x", v)
}

// =============================================================================
// Fan-out
// =============================================================================

// MultiHooks forwards every event to each of its members in order.
type MultiHooks []TableHooks

func (m MultiHooks) OnRelayout(partitions, moved int) {
	for _, h := range m {
		h.OnRelayout(partitions, moved)
	}
}

func (m MultiHooks) OnResizeAttempt(name string, candidate int64, fits bool) {
	for _, h := range m {
		h.OnResizeAttempt(name, candidate, fits)
	}
}

func (m MultiHooks) OnResizeComplete(name string, requested, committed int64, err error) {
	for _, h := range m {
		h.OnResizeComplete(name, requested, committed, err)
	}
}

func (m MultiHooks) OnEvict(name string, size, capacity int64) {
	for _, h := range m {
		h.OnEvict(name, size, capacity)
	}
}
