package ctl

import (
	"fmt"
)

// Status fetches daemon health and stream statistics and prints a summary.
func Status(baseURL string, asJSON bool) error {
	var health struct {
		Status  string `json:"status"`
		Uptime  string `json:"uptime"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := getJSON(baseURL, "/health", &health); err != nil {
		return err
	}

	var stats struct {
		Stream struct {
			FramesDecoded  uint64 `json:"frames_decoded"`
			ChecksumErrors uint64 `json:"checksum_errors"`
			BytesDropped   uint64 `json:"bytes_dropped"`
			BytesConsumed  uint64 `json:"bytes_consumed"`
		} `json:"stream"`
		Text struct {
			Messages uint64 `json:"messages"`
			Dropped  uint64 `json:"dropped"`
		} `json:"text"`
	}
	if err := getJSON(baseURL, "/stats", &stats); err != nil {
		return err
	}

	if asJSON {
		return printJSON(map[string]any{"health": health, "stats": stats})
	}

	fmt.Printf("Daemon:   %s (%s, up %s)\n", health.Name, health.Status, health.Uptime)
	fmt.Printf("Frames:   %d decoded, %d checksum errors, %d bytes dropped\n",
		stats.Stream.FramesDecoded, stats.Stream.ChecksumErrors, stats.Stream.BytesDropped)
	fmt.Printf("Messages: %d parsed, %d dropped\n", stats.Text.Messages, stats.Text.Dropped)
	return nil
}

// Memory fetches the latest firmware heap report.
func Memory(baseURL string, asJSON bool) error {
	var mem struct {
		FreeHeap    uint32 `json:"free_heap"`
		MinFreeHeap uint32 `json:"min_free_heap"`
	}
	if err := getJSON(baseURL, "/memory", &mem); err != nil {
		return err
	}
	if asJSON {
		return printJSON(mem)
	}
	fmt.Printf("Free heap: %d bytes (low water mark %d)\n", mem.FreeHeap, mem.MinFreeHeap)
	return nil
}
