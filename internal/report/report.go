// Package report renders a trace analysis as plain text, JSON, or a Mermaid
// sequence diagram.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/reactorctl/internal/trace"
)

// Format selects a report renderer.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
)

// Render produces the report for a in the requested format.
func Render(a trace.Analysis, format Format) (string, error) {
	switch format {
	case FormatText:
		return Text(a), nil
	case FormatJSON:
		return JSON(a)
	case FormatMermaid:
		return Mermaid(a), nil
	}
	return "", fmt.Errorf("report: unknown format %q", format)
}

// Text renders the human-readable report: summary, issues, the last 50
// timeline events, and per-entity statistics sorted by entity id.
func Text(a trace.Analysis) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("MicroReactor Crash Dump Analysis\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "Total events: %d\n", a.Summary.TotalEvents)
	fmt.Fprintf(&b, "Unique entities: %d\n", a.Summary.UniqueEntities)
	fmt.Fprintf(&b, "Unique signals: %d\n\n", a.Summary.UniqueSignals)

	if len(a.Issues) > 0 {
		b.WriteString("## Potential Issues\n")
		for _, issue := range a.Issues {
			fmt.Fprintf(&b, "  - [%s] %s\n", issue.Kind, issue.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Event Timeline (last 50 events)\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, ev := range tail(a.Timeline, 50) {
		fmt.Fprintf(&b, "[%8dms] %-15s <- %-25s from %-15s (state=%s)\n",
			ev.Timestamp, ev.Entity, ev.Signal, ev.Source, ev.State)
	}
	b.WriteString("\n")

	b.WriteString("## Entity Statistics\n")
	for _, id := range sortedEntityIDs(a) {
		stats := a.Entities[id]
		fmt.Fprintf(&b, "  %s:\n", stats.Name)
		fmt.Fprintf(&b, "    Signals received: %d\n", stats.SignalCount)
		fmt.Fprintf(&b, "    State changes: %d\n", stats.StateChanges)
	}

	return b.String()
}

// JSON renders the full analysis, indented.
func JSON(a trace.Analysis) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}
	return string(data), nil
}

// Mermaid renders a sequence diagram of the last 30 events. Self-directed
// signals become notes instead of arrows.
func Mermaid(a trace.Analysis) string {
	var b strings.Builder
	b.WriteString("```mermaid\n")
	b.WriteString("sequenceDiagram\n")

	participants := make([]string, 0, len(a.Entities))
	for _, id := range sortedEntityIDs(a) {
		participants = append(participants, a.Entities[id].Name)
	}
	sort.Strings(participants)
	for _, p := range participants {
		fmt.Fprintf(&b, "    participant %s\n", p)
	}

	for _, ev := range tail(a.Timeline, 30) {
		if ev.Source != ev.Entity {
			fmt.Fprintf(&b, "    %s->>+%s: %s\n", ev.Source, ev.Entity, ev.Signal)
		} else {
			fmt.Fprintf(&b, "    Note right of %s: %s\n", ev.Entity, ev.Signal)
		}
	}

	b.WriteString("```")
	return b.String()
}

func tail(entries []trace.TimelineEntry, n int) []trace.TimelineEntry {
	if len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

func sortedEntityIDs(a trace.Analysis) []uint16 {
	ids := make([]uint16, 0, len(a.Entities))
	for id := range a.Entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
