// Package notify shows transient toast messages.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Level severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast one notification.
type Toast struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
)

// Console prints toasts to a writer and logs them.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

// NewConsole creates a console notifier.
func NewConsole(out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{out: out, logger: logger}
}

func (c *Console) Success(msg string) {
	c.logger.Info("notification", zap.String("level", string(LevelSuccess)), zap.String("message", msg))
	c.print(successStyle.Render("✓ " + msg))
}

func (c *Console) Error(msg string) {
	c.logger.Info("notification", zap.String("level", string(LevelError)), zap.String("message", msg))
	c.print(errorStyle.Render("✗ " + msg))
}

func (c *Console) print(line string) {
	if c.out == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Feed keeps the most recent toasts in memory until they are drained,
// for presenters that render notifications on their next paint.
type Feed struct {
	mu     sync.Mutex
	toasts []Toast
	limit  int
	now    func() time.Time
}

// NewFeed creates a feed holding at most limit toasts.
func NewFeed(limit int) *Feed {
	if limit < 1 {
		limit = 20
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Success(msg string) { f.push(LevelSuccess, msg) }

func (f *Feed) Error(msg string) { f.push(LevelError, msg) }

func (f *Feed) push(level Level, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, Toast{Time: f.now(), Level: level, Message: msg})
	if len(f.toasts) > f.limit {
		f.toasts = f.toasts[len(f.toasts)-f.limit:]
	}
}

// Drain returns pending toasts and clears them.
func (f *Feed) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.toasts
	f.toasts = nil
	return out
}

// Multi forwards to several notifiers.
type Multi []interface {
	Success(string)
	Error(string)
}

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
