package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"crashaudit/internal/correlate"
	"crashaudit/internal/gitscan"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func testItems(t *testing.T) []item {
	t.Helper()
	reports := []correlate.IssueReport{
		{
			IssueID: 100,
			Events: []gitscan.DeletionEvent{
				{Path: "tests/crashes/100.rs", IssueID: 100, CommitDate: day(t, "2024-01-05")},
				{Path: "tests/crashes/100-b.rs", IssueID: 100, CommitDate: day(t, "2024-03-01")},
			},
		},
		{
			IssueID: 31337,
			Events: []gitscan.DeletionEvent{
				{Path: "tests/crashes/31337.rs", IssueID: 31337, CommitDate: day(t, "2024-02-02")},
			},
		},
	}
	return buildItems(reports, "rust-lang/rust")
}

func TestBuildItems(t *testing.T) {
	items := testItems(t)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].url != "https://github.com/rust-lang/rust/issues/100" {
		t.Errorf("url = %q", items[0].url)
	}
	// Label carries the most recent deletion date.
	if !strings.Contains(items[0].label, "2024-03-01") {
		t.Errorf("label %q missing latest deletion date", items[0].label)
	}
	if !strings.Contains(items[0].label, "2 test(s)") {
		t.Errorf("label %q missing deletion count", items[0].label)
	}
}

func updateModel(t *testing.T, m browserModel, msg tea.Msg) browserModel {
	t.Helper()
	next, _ := m.Update(msg)
	bm, ok := next.(browserModel)
	if !ok {
		t.Fatalf("Update returned %T, want browserModel", next)
	}
	return bm
}

func keyMsg(key string) tea.Msg {
	switch key {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestBrowserNavigation(t *testing.T) {
	m := newBrowserModel(testItems(t))

	if m.cursor != 0 {
		t.Errorf("initial cursor = %d, want 0", m.cursor)
	}

	m = updateModel(t, m, keyMsg("down"))
	if m.cursor != 1 {
		t.Errorf("cursor after down = %d, want 1", m.cursor)
	}

	// Cursor stops at the last entry.
	m = updateModel(t, m, keyMsg("down"))
	if m.cursor != 1 {
		t.Errorf("cursor past end = %d, want 1", m.cursor)
	}

	m = updateModel(t, m, keyMsg("up"))
	if m.cursor != 0 {
		t.Errorf("cursor after up = %d, want 0", m.cursor)
	}
}

func TestBrowserFilter(t *testing.T) {
	m := newBrowserModel(testItems(t))

	if len(m.filtered) != 2 {
		t.Fatalf("unfiltered list has %d entries, want 2", len(m.filtered))
	}

	for _, r := range "31337" {
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	if len(m.filtered) != 1 {
		t.Fatalf("filtered list has %d entries, want 1", len(m.filtered))
	}
	if got := m.items[m.filtered[0].Index].issueID; got != 31337 {
		t.Errorf("filtered to issue %d, want 31337", got)
	}

	view := m.View()
	if !strings.Contains(view, "#31337") {
		t.Errorf("view missing filtered issue:\n%s", view)
	}
}

func TestBrowserQuitKeys(t *testing.T) {
	m := newBrowserModel(testItems(t))

	_, cmd := m.Update(keyMsg("esc"))
	if cmd == nil {
		t.Fatal("esc did not produce a command")
	}
	if msg := cmd(); msg == nil {
		t.Error("esc command returned nil msg, want tea.Quit")
	}
}

func TestRunBrowserEmpty(t *testing.T) {
	// No flagged issues: nothing to browse, no program started.
	if err := RunBrowser(nil, "rust-lang/rust"); err != nil {
		t.Errorf("RunBrowser(nil) = %v, want nil", err)
	}
}
