package version

import "testing"

func TestInfoString(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildDate: "2026-01-02T00:00:00Z"}
	if got := info.String(); got != "1.2.0 (commit abc123, built 2026-01-02T00:00:00Z)" {
		t.Fatalf("unexpected summary %q", got)
	}
	if Get().Version != Version {
		t.Fatalf("Get did not report the linked version")
	}
}
