package fetch

import (
	"strings"
	"testing"
	"time"
)

func TestAddressNormalization(t *testing.T) {
	cases := []struct {
		name    string
		fetcher Fetcher
		want    string
		wantErr bool
	}{
		{"default port", Fetcher{Host: "bench-1"}, "bench-1:22", false},
		{"explicit port field", Fetcher{Host: "bench-1", Port: "2222"}, "bench-1:2222", false},
		{"port in host", Fetcher{Host: "bench-1:2200"}, "bench-1:2200", false},
		{"missing host", Fetcher{}, "", true},
	}
	for _, tc := range cases {
		got, err := tc.fetcher.address()
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: got %q err=%v", tc.name, got, err)
		}
	}
}

func TestClientConfigRequiresUserAndKey(t *testing.T) {
	f := Fetcher{Host: "bench-1"}
	if _, err := f.clientConfig(); err == nil || !strings.Contains(err.Error(), "user") {
		t.Fatalf("expected user error, got %v", err)
	}

	f.User = "ops"
	if _, err := f.clientConfig(); err == nil || !strings.Contains(err.Error(), "key path") {
		t.Fatalf("expected key path error, got %v", err)
	}
}

func TestShellEscape(t *testing.T) {
	cases := map[string]string{
		"":                 "''",
		"/var/dump.bin":    "'/var/dump.bin'",
		"with space":       "'with space'",
		"o'brien/dump.hex": `'o'"'"'brien/dump.hex'`,
	}
	for in, want := range cases {
		if got := shellEscape(in); got != want {
			t.Fatalf("escape %q: got %q want %q", in, got, want)
		}
	}
}

func TestFetchUnreachableHostFailsFast(t *testing.T) {
	f := Fetcher{
		Host:                        "127.0.0.1",
		Port:                        "1",
		User:                        "ops",
		KeyPath:                     "/nonexistent/key",
		InsecureSkipHostKeyChecking: true,
		Timeout:                     200 * time.Millisecond,
	}
	if _, err := f.Fetch("/var/dump.bin"); err == nil {
		t.Fatalf("expected error")
	}
}
