package main

import (
	"strings"
)

type EventKind int

const (
	EventUnknown EventKind = iota
	EventAdded
	EventDeleted
	EventProgressFinal
	EventProgress
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "Added"
	case EventDeleted:
		return "Deleted"
	case EventProgressFinal, EventProgress:
		return "Progress"
	case EventMalformed:
		return "Malformed"
	}
	return "Unknown Operation"
}

// SyncEvent is one classified line of mirror output.
type SyncEvent struct {
	Kind EventKind
	Raw  string
	// Path is the last token of the line relative to the remote URI.
	Path string
}

const finalProgressMarker = "~0 file(s) remaining"

// ParseLine classifies a mirror output line. remoteURI is stripped from the
// reported path when present.
func ParseLine(line, remoteURI string) SyncEvent {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return SyncEvent{Kind: EventMalformed, Raw: line}
	}

	event := SyncEvent{Raw: line, Path: fields[len(fields)-1]}
	if remoteURI != "" {
		event.Path = strings.TrimPrefix(event.Path, strings.TrimSuffix(remoteURI, "/")+"/")
	}

	switch {
	case strings.Contains(line, "upload"):
		event.Kind = EventAdded
	case strings.Contains(line, "delete"):
		event.Kind = EventDeleted
	case strings.Contains(line, "Completed") && strings.Contains(line, finalProgressMarker):
		event.Kind = EventProgressFinal
	case strings.Contains(line, "Completed"):
		event.Kind = EventProgress
	default:
		event.Kind = EventUnknown
	}

	return event
}
