// Rctl is the command-line client for reactor diagnostics. It analyzes black
// box crash dumps offline and talks to a running reactord daemon for live
// queries, signal injection, and trace control.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/danmuck/reactorctl/internal/blackbox"
	"github.com/danmuck/reactorctl/internal/ctl"
	"github.com/danmuck/reactorctl/internal/fetch"
	"github.com/danmuck/reactorctl/internal/names"
	"github.com/danmuck/reactorctl/internal/report"
	"github.com/danmuck/reactorctl/internal/trace"
)

func main() {
	var (
		host       = pflag.StringP("host", "H", "", "reactord base URL (e.g. http://192.168.1.40:9500)")
		format     = pflag.String("format", "", "report format: text, json, or mermaid")
		namesFile  = pflag.String("names", "", "TOML name table for offline analysis")
		configPath = pflag.StringP("config", "c", "", "path to rctl config file")
		token      = pflag.String("token", "", "API token for mutating commands")
		jsonOut    = pflag.Bool("json", false, "output raw JSON instead of formatted text")
	)

	// Stop parsing global flags at the command name so subcommand flags like
	// --limit are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fail(err)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *namesFile != "" {
		cfg.NamesFile = *namesFile
	}
	if *token != "" {
		cfg.Token = *token
	}
	ctl.SetToken(cfg.Token)

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	switch cmd {
	case "status":
		err = ctl.Status(cfg.Host, *jsonOut)

	case "memory":
		err = ctl.Memory(cfg.Host, *jsonOut)

	case "entities":
		err = ctl.Entities(cfg.Host, *jsonOut)

	case "signals":
		err = ctl.Signals(cfg.Host, *jsonOut)

	case "events":
		limit := 0
		eventFlags := pflag.NewFlagSet("events", pflag.ContinueOnError)
		eventFlags.IntVar(&limit, "limit", 0, "show only the last N events")
		_ = eventFlags.Parse(subArgs)
		err = ctl.Events(cfg.Host, *jsonOut, limit)

	case "issues":
		err = ctl.Issues(cfg.Host, *jsonOut)

	case "inject":
		err = runInject(cfg.Host, subArgs)

	case "param":
		err = runParam(cfg.Host, subArgs)

	case "trace":
		err = runTrace(cfg.Host, subArgs)

	case "analyze":
		err = runAnalyze(cfg, subArgs)

	case "fetch":
		err = runFetch(cfg, subArgs)

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fail(err)
	}
}

func resolveConfig(explicit string) (cliConfig, error) {
	if explicit != "" {
		return loadCLIConfig(explicit, false)
	}
	path := defaultConfigPath()
	if path == "" {
		return defaultCLIConfig(), nil
	}
	return loadCLIConfig(path, true)
}

func runInject(host string, args []string) error {
	var src, payload uint
	injectFlags := pflag.NewFlagSet("inject", pflag.ContinueOnError)
	injectFlags.UintVar(&src, "src", 0, "source entity id")
	injectFlags.UintVar(&payload, "payload", 0, "32-bit payload value")
	if err := injectFlags.Parse(args); err != nil {
		return err
	}
	if injectFlags.NArg() < 1 {
		return fmt.Errorf("usage: rctl inject <signal-id> [--src N] [--payload N]")
	}
	signalID, err := parseID(injectFlags.Arg(0))
	if err != nil {
		return fmt.Errorf("signal id: %w", err)
	}
	return ctl.Inject(host, signalID, uint16(src), uint32(payload))
}

func runParam(host string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: rctl param get <id> | rctl param set <id> <value>")
	}
	id, err := parseID(args[1])
	if err != nil {
		return fmt.Errorf("param id: %w", err)
	}
	switch args[0] {
	case "get":
		return ctl.Command(host, "param_get", id, "")
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: rctl param set <id> <value>")
		}
		return ctl.Command(host, "param_set", id, args[2])
	}
	return fmt.Errorf("unknown param action %q", args[0])
}

func runTrace(host string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rctl trace start|stop|dump")
	}
	switch args[0] {
	case "start":
		return ctl.Command(host, "trace_start", 0, "")
	case "stop":
		return ctl.Command(host, "trace_stop", 0, "")
	case "dump":
		return ctl.Command(host, "trace_dump", 0, "")
	}
	return fmt.Errorf("unknown trace action %q", args[0])
}

func runAnalyze(cfg cliConfig, args []string) error {
	format := report.Format(cfg.Format)

	var remote bool
	var output string
	analyzeFlags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	analyzeFlags.BoolVar(&remote, "remote", false, "analyze the daemon's live event ring instead of a dump file")
	analyzeFlags.StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	if err := analyzeFlags.Parse(args); err != nil {
		return err
	}

	if remote {
		return ctl.Analyze(cfg.Host, format)
	}

	if analyzeFlags.NArg() < 1 {
		return fmt.Errorf("usage: rctl analyze <dump-file> [--output FILE] or rctl analyze --remote")
	}
	dump, err := blackbox.Load(analyzeFlags.Arg(0))
	if err != nil {
		return err
	}

	registry := names.NewRegistry()
	if cfg.NamesFile != "" {
		if err := registry.LoadFile(cfg.NamesFile); err != nil {
			return err
		}
	}

	analysis := trace.Analyze(trace.FromBlackbox(dump), registry)
	out, err := report.Render(analysis, format)
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", output)
		return nil
	}
	fmt.Println(out)
	return nil
}

func runFetch(cfg cliConfig, args []string) error {
	fetcher := fetch.Fetcher{}
	var output string
	var insecure bool
	fetchFlags := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
	fetchFlags.StringVar(&fetcher.Host, "ssh-host", "", "bench host to fetch from")
	fetchFlags.StringVar(&fetcher.Port, "ssh-port", "", "ssh port (default 22)")
	fetchFlags.StringVar(&fetcher.User, "ssh-user", "", "ssh user")
	fetchFlags.StringVar(&fetcher.KeyPath, "ssh-key", "", "private key path")
	fetchFlags.StringVar(&fetcher.KnownHostsPath, "known-hosts", "", "known_hosts path")
	fetchFlags.BoolVar(&insecure, "insecure", false, "skip host key verification")
	fetchFlags.StringVarP(&output, "output", "o", "", "write the dump to a file instead of analyzing")
	if err := fetchFlags.Parse(args); err != nil {
		return err
	}
	fetcher.InsecureSkipHostKeyChecking = insecure

	if fetchFlags.NArg() < 1 {
		return fmt.Errorf("usage: rctl fetch --ssh-host HOST --ssh-user USER --ssh-key KEY <remote-path>")
	}
	remotePath := fetchFlags.Arg(0)

	if output != "" {
		data, err := fetcher.Fetch(remotePath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Dump written to %s (%d bytes)\n", output, len(data))
		return nil
	}

	dump, err := fetcher.FetchDump(remotePath)
	if err != nil {
		return err
	}
	registry := names.NewRegistry()
	if cfg.NamesFile != "" {
		if err := registry.LoadFile(cfg.NamesFile); err != nil {
			return err
		}
	}
	analysis := trace.Analyze(trace.FromBlackbox(dump), registry)
	out, err := report.Render(analysis, report.Format(cfg.Format))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// parseID accepts decimal or 0x-prefixed hex ids.
func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Print(`
  rctl - MicroReactor diagnostics CLI

  USAGE
    rctl [flags] <command> [command-flags]

  COMMANDS (live, via reactord)
    status          Show daemon health and stream statistics
    memory          Show the latest firmware heap report
    entities        List entities announced by the firmware
    signals         List signal names announced by the firmware
    events          Show the daemon's retained event ring
    issues          Run the issue detectors over retained events
    inject          Inject a signal onto the reactor bus
    param           Read or write a runtime parameter (get/set)
    trace           Control trace emission (start/stop/dump)

  COMMANDS (offline)
    analyze         Analyze a black box dump file (or --remote for live data)
    fetch           Fetch a dump from a bench host over SSH

  GLOBAL FLAGS
    -H, --host URL      reactord base URL (default: http://127.0.0.1:9500)
        --format FMT    report format: text, json, mermaid
        --names FILE    TOML name table for offline analysis
    -c, --config FILE   rctl config file (default: ~/.config/rctl/config.toml)
        --token TOKEN   API token for mutating commands
        --json          raw JSON output for live query commands

  COMMAND FLAGS
    events:
        --limit N           show only the last N events

    inject:
        --src N             source entity id
        --payload N         32-bit payload value

    analyze:
        --remote            analyze the daemon's live event ring
        -o, --output FILE   write the report to a file

    fetch:
        --ssh-host HOST     bench host to fetch from
        --ssh-user USER     ssh user
        --ssh-key KEY       private key path
        --ssh-port PORT     ssh port (default 22)
        --known-hosts FILE  known_hosts path
        --insecure          skip host key verification
        -o, --output FILE   save the dump instead of analyzing it
`)
}
