package trace

import (
	"fmt"
	"sort"
)

// Issue kinds form a closed set; the detector thresholds are fixed firmware
// compatibility constants and must not be tuned here.
const (
	IssueRapidStateChanges = "rapid_state_changes"
	IssueEntityDying       = "entity_dying"
	IssueMultipleTimeouts  = "multiple_timeouts"
	IssueSignalStorm       = "signal_storm"
)

// Issue is one heuristic fault finding.
type Issue struct {
	Kind      string `json:"type"`
	Entity    string `json:"entity,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
	Count     int    `json:"count,omitempty"`
	Rate      uint64 `json:"rate,omitempty"`
	Message   string `json:"message"`
}

// TimelineEntry is one resolved event in the analysis timeline.
type TimelineEntry struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp_ms"`
	Entity    string `json:"entity"`
	EntityID  uint16 `json:"entity_id"`
	Signal    string `json:"signal"`
	SignalID  uint16 `json:"signal_id"`
	Source    string `json:"source"`
	SourceID  uint16 `json:"source_id"`
	State     string `json:"state"`
	StateID   uint16 `json:"state_id"`
}

// EntityStats accumulates per-entity counters over one analysis.
type EntityStats struct {
	Name            string   `json:"name"`
	SignalCount     int      `json:"signal_count"`
	StateChanges    int      `json:"state_changes"`
	LastState       uint16   `json:"last_state"`
	SeenState       bool     `json:"-"`
	SignalsReceived []string `json:"signals_received"`
}

// DispatchSpan is one paired dispatch start/end for an entity.
type DispatchSpan struct {
	EntityID   uint16 `json:"entity_id"`
	SignalID   uint16 `json:"signal_id"`
	StartTS    uint64 `json:"start_ms"`
	EndTS      uint64 `json:"end_ms"`
	DurationMS uint64 `json:"duration_ms"`
}

// Summary holds whole-trace counts.
type Summary struct {
	TotalEvents    int `json:"total_events"`
	UniqueEntities int `json:"unique_entities"`
	UniqueSignals  int `json:"unique_signals"`
}

// Analysis is the complete result of one Analyze call. The caller owns it;
// the analyzer keeps no reference.
type Analysis struct {
	Summary    Summary                 `json:"summary"`
	Timeline   []TimelineEntry         `json:"timeline"`
	Entities   map[uint16]*EntityStats `json:"entities"`
	Dispatches []DispatchSpan          `json:"dispatches"`
	Issues     []Issue                 `json:"potential_issues"`
}

// Analyze runs a single forward pass over records: timeline with name
// resolution, per-entity stats, dispatch pairing, then the fixed issue
// detectors over the complete set. It never fails on well-formed input.
func Analyze(records []Record, resolver NameResolver) Analysis {
	a := Analysis{
		Entities: make(map[uint16]*EntityStats),
		Timeline: make([]TimelineEntry, 0, len(records)),
	}

	uniqueSignals := make(map[uint16]struct{})
	// Entities are assumed non-reentrant: at most one open dispatch each, so
	// pairing is a single-slot map lookup instead of a backward scan.
	openDispatch := make(map[uint16]DispatchSpan)

	for i, rec := range records {
		entry := TimelineEntry{
			Index:     i,
			Timestamp: rec.Timestamp,
			Entity:    EntityName(resolver, rec.EntityID),
			EntityID:  rec.EntityID,
			Signal:    SignalName(resolver, rec.SignalID),
			SignalID:  rec.SignalID,
			Source:    EntityName(resolver, rec.SrcID),
			SourceID:  rec.SrcID,
			State:     StateName(resolver, rec.State),
			StateID:   rec.State,
		}
		a.Timeline = append(a.Timeline, entry)
		uniqueSignals[rec.SignalID] = struct{}{}

		stats := a.Entities[rec.EntityID]
		if stats == nil {
			stats = &EntityStats{Name: entry.Entity}
			a.Entities[rec.EntityID] = stats
		}
		stats.SignalCount++
		stats.SignalsReceived = append(stats.SignalsReceived, entry.Signal)

		// First observation establishes a baseline; only later differing
		// states count as changes.
		if stats.SeenState && stats.LastState != rec.State {
			stats.StateChanges++
		}
		stats.LastState = rec.State
		stats.SeenState = true

		switch rec.Kind {
		case KindDispatchStart:
			openDispatch[rec.EntityID] = DispatchSpan{
				EntityID: rec.EntityID,
				SignalID: rec.SignalID,
				StartTS:  rec.Timestamp,
			}
		case KindDispatchEnd:
			if span, ok := openDispatch[rec.EntityID]; ok {
				span.EndTS = rec.Timestamp
				span.DurationMS = rec.Timestamp - span.StartTS
				a.Dispatches = append(a.Dispatches, span)
				delete(openDispatch, rec.EntityID)
			}
			// An unmatched end is not an error; it produces no span.
		}
	}

	a.Summary = Summary{
		TotalEvents:    len(records),
		UniqueEntities: len(a.Entities),
		UniqueSignals:  len(uniqueSignals),
	}
	a.Issues = detectIssues(records, a.Entities, resolver)
	return a
}

// detectIssues runs the four fixed detectors independently over the complete
// event set. Every match is reported, in deterministic order.
func detectIssues(records []Record, entities map[uint16]*EntityStats, resolver NameResolver) []Issue {
	var issues []Issue
	total := len(records)

	ids := make([]uint16, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		stats := entities[id]
		if stats.StateChanges > total/4 {
			issues = append(issues, Issue{
				Kind:   IssueRapidStateChanges,
				Entity: stats.Name,
				Count:  stats.StateChanges,
				Message: fmt.Sprintf("%s had %d state changes in %d events - possible thrashing",
					stats.Name, stats.StateChanges, total),
			})
		}
	}

	for _, rec := range records {
		if rec.SignalID == SigSysDying {
			name := EntityName(resolver, rec.EntityID)
			issues = append(issues, Issue{
				Kind:      IssueEntityDying,
				Entity:    name,
				Timestamp: rec.Timestamp,
				Message:   fmt.Sprintf("%s reported dying at t=%dms", name, rec.Timestamp),
			})
		}
	}

	timeouts := 0
	for _, rec := range records {
		if rec.SignalID == SigSysTimeout {
			timeouts++
		}
	}
	if timeouts > 3 {
		issues = append(issues, Issue{
			Kind:    IssueMultipleTimeouts,
			Count:   timeouts,
			Message: fmt.Sprintf("Multiple timeout events (%d) - possible stuck operations", timeouts),
		})
	}

	if total > 0 {
		duration := records[total-1].Timestamp - records[0].Timestamp
		if duration < 1 {
			duration = 1
		}
		rate := uint64(total) * 1000 / duration // events per second
		if rate > 1000 {
			issues = append(issues, Issue{
				Kind:    IssueSignalStorm,
				Rate:    rate,
				Message: fmt.Sprintf("Very high signal rate (%d/sec) - possible infinite loop", rate),
			})
		}
	}

	return issues
}
