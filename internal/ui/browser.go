// Package ui provides the interactive issue browser.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"crashaudit/internal/correlate"
	"crashaudit/internal/report"
	"crashaudit/internal/ui/styles"
)

// item is one flagged issue in the browser list.
type item struct {
	issueID uint64
	url     string
	label   string
}

// itemSource implements fuzzy.Source over the item labels.
type itemSource []item

func (s itemSource) String(i int) string { return s[i].label }
func (s itemSource) Len() int            { return len(s) }

// browserModel is the bubbletea model for browsing flagged issues.
type browserModel struct {
	items     itemSource
	filtered  []fuzzy.Match
	textInput textinput.Model
	cursor    int
	status    string
	maxHeight int
}

func newBrowserModel(items []item) browserModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 40
	ti.PromptStyle = styles.PrimaryStyle

	m := browserModel{
		items:     items,
		textInput: ti,
		maxHeight: 10,
	}
	m.applyFilter()
	return m
}

// applyFilter recomputes the filtered list from the current query.
// An empty query shows everything in original order.
func (m *browserModel) applyFilter() {
	query := m.textInput.Value()
	if query == "" {
		m.filtered = make([]fuzzy.Match, len(m.items))
		for i := range m.items {
			m.filtered[i] = fuzzy.Match{Str: m.items[i].label, Index: i}
		}
	} else {
		m.filtered = fuzzy.FindFrom(query, m.items)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

func (m browserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if len(m.filtered) > 0 && m.cursor < len(m.filtered) {
				it := m.items[m.filtered[m.cursor].Index]
				if err := clipboard.WriteAll(it.url); err != nil {
					m.status = fmt.Sprintf("clipboard unavailable: %v", err)
				} else {
					m.status = fmt.Sprintf("copied %s", it.url)
				}
			}
			return m, nil

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.applyFilter()

	return m, cmd
}

func (m browserModel) View() string {
	var sb strings.Builder

	sb.WriteString("Flagged issues (crash tests deleted, issue still open):\n")
	sb.WriteString(m.textInput.View())
	sb.WriteString("\n\n")

	if len(m.filtered) == 0 {
		sb.WriteString(styles.MutedStyle.Render("  No matches found"))
		sb.WriteString("\n")
	} else {
		// Keep the cursor centered in the visible window.
		start := 0
		end := len(m.filtered)
		if end > m.maxHeight {
			halfHeight := m.maxHeight / 2
			start = m.cursor - halfHeight
			if start < 0 {
				start = 0
			}
			end = start + m.maxHeight
			if end > len(m.filtered) {
				end = len(m.filtered)
				start = max(0, end-m.maxHeight)
			}
		}

		for i := start; i < end; i++ {
			it := m.items[m.filtered[i].Index]
			if i == m.cursor {
				sb.WriteString(styles.PrimaryStyle.Render("> "))
				sb.WriteString(styles.AccentStyle.Render(it.label))
			} else {
				sb.WriteString("  ")
				sb.WriteString(styles.NormalStyle.Render(it.label))
			}
			sb.WriteString("\n")
		}

		if len(m.filtered) > m.maxHeight {
			sb.WriteString(styles.MutedStyle.Render(fmt.Sprintf("\n  %d/%d", m.cursor+1, len(m.filtered))))
		}
	}

	if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.SuccessStyle.Render(m.status))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.MutedStyle.Render("↑/↓ navigate • enter copy URL • esc quit"))

	return sb.String()
}

// buildItems converts flagged issue reports into browser list entries.
func buildItems(reports []correlate.IssueReport, slug string) []item {
	items := make([]item, 0, len(reports))
	for _, r := range reports {
		last := r.Events[0].CommitDate
		for _, ev := range r.Events[1:] {
			if ev.CommitDate.After(last) {
				last = ev.CommitDate
			}
		}
		items = append(items, item{
			issueID: r.IssueID,
			url:     report.IssueURL(slug, r.IssueID),
			label: fmt.Sprintf("#%d  %d test(s) deleted  last %s",
				r.IssueID, len(r.Events), last.Format("2006-01-02")),
		})
	}
	return items
}

// RunBrowser shows an interactive fuzzy-filterable list of the issues
// that need attention. Enter copies the highlighted issue URL to the
// clipboard; esc quits. Returns immediately if there is nothing to show.
func RunBrowser(flagged []correlate.IssueReport, slug string) error {
	if len(flagged) == 0 {
		return nil
	}

	model := newBrowserModel(buildItems(flagged, slug))
	p := tea.NewProgram(model)

	_, err := p.Run()
	return err
}
