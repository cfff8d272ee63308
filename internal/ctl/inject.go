package ctl

import "fmt"

// Inject sends a signal onto the reactor bus through the daemon.
func Inject(baseURL string, signalID, srcID uint16, payload uint32) error {
	body := map[string]any{
		"signal_id": signalID,
		"src_id":    srcID,
		"payload":   payload,
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := postJSON(baseURL, "/inject", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Injected signal 0x%04X (src %d): %s\n", signalID, srcID, resp.Status)
	return nil
}

// Command forwards a shell command through the daemon's control channel.
func Command(baseURL, command string, paramID uint16, value string) error {
	body := map[string]any{
		"command":  command,
		"param_id": paramID,
		"value":    value,
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := postJSON(baseURL, "/command", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Command %q sent: %s\n", command, resp.Status)
	return nil
}
