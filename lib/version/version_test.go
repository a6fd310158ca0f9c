// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime })

	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-03-01T12:00:00Z"
	if got, want := Info(), Version+" (abc1234-dirty, 2026-03-01T12:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if Commit() != "abc1234" {
		t.Errorf("Commit() = %q", Commit())
	}

	GitDirty = "false"
	if strings.Contains(Info(), "dirty") {
		t.Errorf("clean build reported dirty: %q", Info())
	}
}

func TestFprint(t *testing.T) {
	var output bytes.Buffer
	Fprint(&output, "logregator")
	got := output.String()
	if !strings.HasPrefix(got, "logregator "+Version) || !strings.Contains(got, runtime.Version()) {
		t.Errorf("Fprint wrote %q", got)
	}
}
