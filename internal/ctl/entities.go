package ctl

import "fmt"

type nameEntry struct {
	ID   uint16 `json:"id"`
	Name string `json:"name"`
}

// Entities prints the entity table announced by the firmware.
func Entities(baseURL string, asJSON bool) error {
	var resp struct {
		Entities []nameEntry `json:"entities"`
	}
	if err := getJSON(baseURL, "/entities", &resp); err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}
	if len(resp.Entities) == 0 {
		fmt.Println("No entities announced yet.")
		return nil
	}
	for _, e := range resp.Entities {
		fmt.Printf("%5d  %s\n", e.ID, e.Name)
	}
	return nil
}

// Signals prints the signal name table announced by the firmware.
func Signals(baseURL string, asJSON bool) error {
	var resp struct {
		Signals []nameEntry `json:"signals"`
	}
	if err := getJSON(baseURL, "/signals", &resp); err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}
	if len(resp.Signals) == 0 {
		fmt.Println("No signal names announced yet.")
		return nil
	}
	for _, s := range resp.Signals {
		fmt.Printf("0x%04X  %s\n", s.ID, s.Name)
	}
	return nil
}
