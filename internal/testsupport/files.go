package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleCaptions is a three-cue WebVTT interview used across package tests.
const SampleCaptions = `WEBVTT

1
00:00:01.000 --> 00:00:04.000
<v Interviewer>How do you track invoices today?

2
00:00:04.500 --> 00:00:09.000
<v Dana>We export everything to a spreadsheet and it takes hours every week.

3
00:00:09.500 --> 00:00:12.000
<v Dana>I would love it if approvals happened automatically.
`

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
