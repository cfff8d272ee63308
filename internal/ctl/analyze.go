package ctl

import (
	"fmt"

	"github.com/danmuck/reactorctl/internal/report"
	"github.com/danmuck/reactorctl/internal/trace"
)

// Analyze asks the daemon for a full analysis of its retained events and
// renders it locally in the requested format.
func Analyze(baseURL string, format report.Format) error {
	var a trace.Analysis
	if err := postJSON(baseURL, "/analyze", nil, &a); err != nil {
		return err
	}
	out, err := report.Render(a, format)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
