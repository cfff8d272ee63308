package ctl

import (
	"fmt"

	"github.com/danmuck/reactorctl/internal/trace"
)

// Events prints the daemon's retained event ring, oldest first.
func Events(baseURL string, asJSON bool, limit int) error {
	var resp struct {
		Events []trace.Record `json:"events"`
	}
	if err := getJSON(baseURL, "/events", &resp); err != nil {
		return err
	}
	events := resp.Events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	if asJSON {
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Println("No events retained yet.")
		return nil
	}
	for _, ev := range events {
		fmt.Printf("[%8dms] %-14s entity=%d signal=0x%04X src=%d state=%d\n",
			ev.Timestamp, ev.Kind, ev.EntityID, ev.SignalID, ev.SrcID, ev.State)
	}
	return nil
}

// Issues asks the daemon to analyze its retained events and prints findings.
func Issues(baseURL string, asJSON bool) error {
	var resp struct {
		Issues []trace.Issue `json:"issues"`
	}
	if err := getJSON(baseURL, "/issues", &resp); err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}
	if len(resp.Issues) == 0 {
		fmt.Println("No issues detected.")
		return nil
	}
	for _, issue := range resp.Issues {
		fmt.Printf("[%s] %s\n", issue.Kind, issue.Message)
	}
	return nil
}
