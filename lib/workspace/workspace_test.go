// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/cdrbill/lib/testutil"
)

func TestDirName(t *testing.T) {
	tests := map[string]string{
		"ana.p@example.com":   "ana_p_example_com",
		"x+tag@mail.co":       "x_tag_mail_co",
		"../../etc/passwd":    "______etc_passwd",
		"  user@example.com ": "user_example_com",
	}
	for identity, want := range tests {
		if got := DirName(identity); got != want {
			t.Errorf("DirName(%q) = %q, want %q", identity, got, want)
		}
	}
}

func TestResolveCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Output")
	manager := NewManager(root)

	workspace, err := manager.Resolve("user@example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if workspace.Dir != filepath.Join(root, "user_example_com") {
		t.Errorf("Dir = %q", workspace.Dir)
	}
	info, err := os.Stat(workspace.Dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace directory not created: %v", err)
	}
	if workspace.CustomerReport() != filepath.Join(workspace.Dir, "CB.txt") ||
		workspace.OperatorReport() != filepath.Join(workspace.Dir, "IOSB.txt") {
		t.Errorf("report paths = %s, %s", workspace.CustomerReport(), workspace.OperatorReport())
	}

	if workspace.ReportsExist() {
		t.Error("ReportsExist() = true for an empty workspace")
	}
	testutil.WriteFile(t, workspace.Dir, CustomerReportName, "x")
	if workspace.ReportsExist() {
		t.Error("ReportsExist() = true with only the customer report")
	}
	testutil.WriteFile(t, workspace.Dir, OperatorReportName, "y")
	if !workspace.ReportsExist() {
		t.Error("ReportsExist() = false with both reports")
	}
}

func TestResolveEmptyIdentity(t *testing.T) {
	if _, err := NewManager(t.TempDir()).Resolve("   "); !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("err = %v, want ErrEmptyIdentity", err)
	}
}

func TestSameIdentitySharesLock(t *testing.T) {
	manager := NewManager(t.TempDir())
	first, err := manager.Resolve("user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := manager.Resolve("user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	other, err := manager.Resolve("other@example.com")
	if err != nil {
		t.Fatal(err)
	}

	first.Lock()
	// A different identity is not blocked.
	other.Lock()
	other.Unlock()

	acquired := make(chan struct{})
	go func() {
		second.Lock()
		close(acquired)
		second.Unlock()
	}()
	select {
	case <-acquired:
		t.Fatal("second session acquired a held identity lock")
	case <-time.After(20 * time.Millisecond): //nolint:realclock negative check
	}
	first.Unlock()
	testutil.RequireClosed(t, acquired, 5*time.Second, "lock hand-off")
}
