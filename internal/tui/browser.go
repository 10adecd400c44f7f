package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/coachdesk/internal/notify"
	"github.com/vadiminshakov/coachdesk/internal/resources"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

// Action is what the user asked for when the browser exited.
type Action int

const (
	ActionQuit Action = iota
	ActionBack
	ActionAdd
	ActionEdit
	ActionDelete
)

// Result of a browser session.
type Result struct {
	Action Action
	ID     string
}

type changeMsg slice.Change

type closedMsg struct{}

// Browser lists one resource and live-filters it while the user types.
type Browser struct {
	h       resources.Handle
	search  *resources.Search
	changes <-chan slice.Change
	feed    *notify.Feed

	input     textinput.Model
	searching bool
	cursor    int
	view      resources.View
	toasts    []notify.Toast
	result    Result
}

// NewBrowser creates a browser over h. changes should be a fresh subscription.
func NewBrowser(h resources.Handle, search *resources.Search, changes <-chan slice.Change, feed *notify.Feed) Browser {
	input := textinput.New()
	input.Placeholder = "search"
	input.Prompt = "/ "
	input.SetValue(search.Params()["search"])
	return Browser{
		h:       h,
		search:  search,
		changes: changes,
		feed:    feed,
		input:   input,
		view:    h.View(),
	}
}

// Result returns the action that ended the session.
func (b Browser) Result() Result {
	return b.result
}

func (b Browser) Init() tea.Cmd {
	return b.wait()
}

func (b Browser) wait() tea.Cmd {
	if b.changes == nil {
		return nil
	}
	ch := b.changes
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return changeMsg(c)
	}
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changeMsg:
		if msg.Resource == b.h.Descriptor().Name {
			b.refresh()
		}
		return b, b.wait()
	case closedMsg:
		return b, nil
	case tea.KeyMsg:
		if b.searching {
			return b.updateSearch(msg)
		}
		return b.updateKeys(msg)
	}
	return b, nil
}

func (b Browser) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		b.searching = false
		b.input.Blur()
		return b, nil
	case "ctrl+c":
		b.result = Result{Action: ActionQuit}
		return b, tea.Quit
	}
	before := b.input.Value()
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	if v := b.input.Value(); v != before {
		b.search.Set("search", strings.TrimSpace(v))
	}
	return b, cmd
}

func (b Browser) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		b.result = Result{Action: ActionQuit}
		return b, tea.Quit
	case "esc", "backspace":
		b.result = Result{Action: ActionBack}
		return b, tea.Quit
	case "/":
		b.searching = true
		return b, b.input.Focus()
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(b.view.IDs)-1 {
			b.cursor++
		}
	case "right", "n":
		if b.view.Pagination.HasNext() {
			b.search.Page(pageOf(b.view.Pagination) + 1)
		}
	case "left", "p":
		if b.view.Pagination.HasPrev() {
			b.search.Page(pageOf(b.view.Pagination) - 1)
		}
	case "r":
		b.search.Page(pageOf(b.view.Pagination))
	case "a":
		if !b.h.Descriptor().ReadOnly {
			b.result = Result{Action: ActionAdd}
			return b, tea.Quit
		}
	case "e", "enter":
		if id := b.selected(); id != "" && !b.h.Descriptor().ReadOnly {
			b.result = Result{Action: ActionEdit, ID: id}
			return b, tea.Quit
		}
	case "d":
		if id := b.selected(); id != "" && !b.h.Descriptor().ReadOnly {
			b.result = Result{Action: ActionDelete, ID: id}
			return b, tea.Quit
		}
	}
	return b, nil
}

func (b *Browser) refresh() {
	b.view = b.h.View()
	if b.cursor >= len(b.view.IDs) {
		b.cursor = len(b.view.IDs) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
	if b.feed != nil {
		b.toasts = append(b.toasts, b.feed.Drain()...)
		if len(b.toasts) > 3 {
			b.toasts = b.toasts[len(b.toasts)-3:]
		}
	}
}

func (b Browser) selected() string {
	if b.cursor < 0 || b.cursor >= len(b.view.IDs) {
		return ""
	}
	return b.view.IDs[b.cursor]
}

func (b Browser) View() string {
	selected := -1
	if len(b.view.IDs) > 0 {
		selected = b.cursor
	}
	parts := []string{Screen(b.view, selected), b.input.View()}
	for _, t := range b.toasts {
		if t.Level == notify.LevelError {
			parts = append(parts, errStyle.Render("✗ "+t.Message))
		} else {
			parts = append(parts, okStyle.Render("✓ "+t.Message))
		}
	}
	help := "/ search • ←/→ page • r reload • esc back • q quit"
	if !b.h.Descriptor().ReadOnly {
		help = "a add • e edit • d delete • " + help
	}
	parts = append(parts, mutedStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
