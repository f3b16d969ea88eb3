package tasks

import (
	"fmt"
	"math"
)

// EventKind tags a [ProgressEvent].
type EventKind int

const (
	EventStatus EventKind = iota
	EventTrack
	EventComplete
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventTrack:
		return "track"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return ""
	}
}

// Severity classifies a per-track result for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
	SeverityInfo    Severity = "info"
)

// ProgressEvent is one unit of the ordered stream a sync job produces.
//
// Which fields are meaningful depends on Kind:
//   - status: Message (status line), Percent, optional Detail
//   - track: Message, Severity
//   - complete: Message (summary), Percent (always 100)
//   - error: Message
type ProgressEvent struct {
	Kind     EventKind
	Message  string
	Detail   string
	Percent  float64
	Severity Severity
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// EventPayload is the JSON object written for each event on the wire.
type EventPayload struct {
	Status  string   `json:"status,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
	Message string   `json:"message,omitempty"`
	Type    Severity `json:"type,omitempty"`
}

// Payload maps the event onto the wire fields status, percent, message and type.
func (e ProgressEvent) Payload() EventPayload {
	switch e.Kind {
	case EventStatus:
		pct := e.Percent
		return EventPayload{Status: e.Message, Percent: &pct, Message: e.Detail}
	case EventTrack:
		return EventPayload{Message: e.Message, Type: e.Severity}
	case EventComplete:
		pct := e.Percent
		return EventPayload{Status: e.Message, Percent: &pct, Message: "Sync completed successfully!", Type: SeveritySuccess}
	case EventError:
		return EventPayload{Message: e.Message, Type: SeverityDanger}
	default:
		return EventPayload{}
	}
}

func (e ProgressEvent) String() string {
	switch e.Kind {
	case EventStatus:
		if e.Detail != "" {
			return fmt.Sprintf("[%5.1f%%] %s (%s)", e.Percent, e.Message, e.Detail)
		}
		return fmt.Sprintf("[%5.1f%%] %s", e.Percent, e.Message)
	case EventTrack:
		return fmt.Sprintf("  %s", e.Message)
	default:
		return e.Message
	}
}

func statusEvent(message string, percent float64) ProgressEvent {
	return ProgressEvent{Kind: EventStatus, Message: message, Percent: percent}
}

func initializingEvent() ProgressEvent {
	return statusEvent("initializing", percentInit)
}

func fetchingEvent(svc string) ProgressEvent {
	return statusEvent(fmt.Sprintf("Fetching %s playlist...", svc), percentFetchStart)
}

func loadingEvent(loaded, total int, totalKnown bool) ProgressEvent {
	if !totalKnown || total <= 0 {
		return statusEvent(fmt.Sprintf("Loading tracks: %d", loaded), percentFetchStart)
	}
	frac := math.Min(float64(loaded)/float64(total), 1)
	return statusEvent(fmt.Sprintf("Loading tracks: %d/%d", loaded, total), percentFetchStart+frac*fetchSpan)
}

func foundTracksEvent(n int) ProgressEvent {
	return statusEvent(fmt.Sprintf("Found %d tracks", n), percentFetchDone)
}

func creatingEvent(svc string) ProgressEvent {
	return statusEvent(fmt.Sprintf("Creating %s playlist...", svc), percentCreate)
}

func syncingEvent(t *trackRef, percent float64) ProgressEvent {
	ev := statusEvent(fmt.Sprintf("Syncing: %s - %s", t.title, t.artist), percent)
	ev.Detail = fmt.Sprintf("%d/%d: %s", t.position, t.total, t.title)
	return ev
}

func trackEvent(message string, severity Severity) ProgressEvent {
	return ProgressEvent{Kind: EventTrack, Message: message, Severity: severity}
}

func matchedEvent(title, candidate string) ProgressEvent {
	return trackEvent(fmt.Sprintf("Matched: %s → %s", title, candidate), SeveritySuccess)
}

func notFoundEvent(title string) ProgressEvent {
	return trackEvent(fmt.Sprintf("Not found: %s", title), SeverityWarning)
}

func searchErrorEvent(title string, err error) ProgressEvent {
	return trackEvent(fmt.Sprintf("Error: %s - %v", title, err), SeverityDanger)
}

func flushFailedEvent(n int, err error) ProgressEvent {
	return trackEvent(fmt.Sprintf("Could not add %d tracks: %v", n, err), SeverityInfo)
}

func completeEvent(summary string) ProgressEvent {
	return ProgressEvent{Kind: EventComplete, Message: summary, Percent: percentDone}
}

func errorEvent(message string) ProgressEvent {
	return ProgressEvent{Kind: EventError, Message: message}
}

// roundPercent rounds p to the given number of decimals.
func roundPercent(p float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(p*scale) / scale
}
