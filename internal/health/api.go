package health

import (
	"fmt"

	"github.com/lenswatch/nvr-core/internal/storage"
	"github.com/lenswatch/nvr-core/internal/stream"
)

// StreamState mirrors stream.State so callers of this package don't
// need to import internal/stream directly; StreamStatusUnknown covers
// names the Supervisor has never heard of (spec.md §6's enumerated
// stream_status return set).
type StreamState string

const (
	StreamStateInactive     StreamState = "inactive"
	StreamStateStarting     StreamState = "starting"
	StreamStateActive       StreamState = "active"
	StreamStateStopping     StreamState = "stopping"
	StreamStateReconnecting StreamState = "reconnecting"
	StreamStateError        StreamState = "error"
	StreamStateUnknown      StreamState = "unknown"
)

// StreamStats mirrors stream.Stats for the same reason.
type StreamStats struct {
	FramesReceived uint64
	BytesReceived  uint64
	Errors         uint64
	LastFrameTime  string // RFC3339, empty if no frame has arrived yet
}

// API is the thin delegation layer described in spec.md §6. It holds no
// state of its own beyond references to the two components it fronts.
type API struct {
	storageCtl *storage.Controller
	supervisor *stream.Supervisor
}

// New creates an API in front of storageCtl and supervisor.
func New(storageCtl *storage.Controller, supervisor *stream.Supervisor) *API {
	return &API{storageCtl: storageCtl, supervisor: supervisor}
}

// HealthSnapshot delegates to the Storage Controller.
func (a *API) HealthSnapshot() storage.Health {
	return a.storageCtl.HealthSnapshot()
}

// PressureLevel delegates to the Storage Controller.
func (a *API) PressureLevel() storage.PressureLevel {
	return a.storageCtl.PressureLevel()
}

// TriggerCleanup delegates to the Storage Controller and returns
// immediately, per spec.md §6.
func (a *API) TriggerCleanup(aggressive bool) {
	a.storageCtl.TriggerCleanup(aggressive)
}

// StreamStatus delegates to the Supervisor, translating "stream never
// registered" into StreamStateUnknown rather than an error — spec.md
// §6 enumerates Unknown as a first-class member of the return set.
func (a *API) StreamStatus(name string) StreamState {
	st, ok := a.supervisor.State(name)
	if !ok {
		return StreamStateUnknown
	}
	return StreamState(st)
}

// StreamStats delegates to the Supervisor. err is non-nil only when
// name is not registered.
func (a *API) StreamStats(name string) (StreamStats, error) {
	st, ok := a.supervisor.Stats(name)
	if !ok {
		return StreamStats{}, fmt.Errorf("health: unknown stream %q", name)
	}
	out := StreamStats{
		FramesReceived: st.FramesReceived,
		BytesReceived:  st.BytesReceived,
		Errors:         st.Errors,
	}
	if !st.LastFrameTime.IsZero() {
		out.LastFrameTime = st.LastFrameTime.Format("2006-01-02T15:04:05Z07:00")
	}
	return out, nil
}
