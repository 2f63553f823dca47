// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dashboard renders a pull-based terminal view of running inputs,
// overall progress and recent log lines.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/liveness"
)

const (
	// DefaultInterval is how often Run redraws.
	DefaultInterval = 250 * time.Millisecond

	// DefaultLogLines is the number of log lines shown.
	DefaultLogLines = 15

	defaultWidth = 100
	minWidth     = 40
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

// Dashboard polls liveness sources and draws them. It never writes to them.
type Dashboard struct {
	out      io.Writer
	tracker  *liveness.Tracker
	progress *liveness.Progress
	logs     *log.Buffer
	pools    *gate.Keyed

	interval    time.Duration
	logLines    int
	width       int
	interactive bool
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithInterval sets the redraw interval.
func WithInterval(d time.Duration) Option {
	return func(db *Dashboard) {
		if d > 0 {
			db.interval = d
		}
	}
}

// WithLogLines sets how many recent log lines are shown.
func WithLogLines(n int) Option {
	return func(db *Dashboard) {
		if n > 0 {
			db.logLines = n
		}
	}
}

// WithWidth fixes the render width instead of detecting it.
func WithWidth(w int) Option {
	return func(db *Dashboard) {
		if w >= minWidth {
			db.width = w
		}
	}
}

// WithPools shows the usage of every per-step pool in pools.
func WithPools(pools *gate.Keyed) Option {
	return func(db *Dashboard) { db.pools = pools }
}

// WithInteractive controls whether each frame clears the screen.
func WithInteractive(on bool) Option {
	return func(db *Dashboard) { db.interactive = on }
}

// New creates a dashboard writing to out. Any source may be nil.
// When out is a terminal, frames clear the screen and the width follows the
// terminal.
func New(out io.Writer, tracker *liveness.Tracker, progress *liveness.Progress, logs *log.Buffer, opts ...Option) *Dashboard {
	d := &Dashboard{
		out:      out,
		tracker:  tracker,
		progress: progress,
		logs:     logs,
		interval: DefaultInterval,
		logLines: DefaultLogLines,
		width:    defaultWidth,
	}

	if f, ok := out.(*os.File); ok && IsTerminal(f) {
		d.interactive = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w >= minWidth {
			d.width = w
		}
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Run redraws every interval until ctx is done, then draws a final frame.
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.draw()
	for {
		select {
		case <-ctx.Done():
			d.draw()
			return
		case <-ticker.C:
			d.draw()
		}
	}
}

func (d *Dashboard) draw() {
	frame := d.Render()
	if d.interactive {
		frame = clearScreen + frame
	}
	fmt.Fprintln(d.out, frame)
}

// Render returns one frame.
func (d *Dashboard) Render() string {
	inner := d.width - 4
	logs := panelStyle.Width(d.width - 2).Render(d.renderLogs(inner))
	status := panelStyle.Width(d.width - 2).Render(d.renderStatus(inner))
	return lipgloss.JoinVertical(lipgloss.Left, logs, status)
}

func (d *Dashboard) renderLogs(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Logs"))
	b.WriteString("\n")

	var lines []string
	if d.logs != nil {
		lines = d.logs.Snapshot(d.logLines)
	}
	if len(lines) == 0 {
		b.WriteString(mutedStyle.Render("No logs yet"))
		return b.String()
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(truncate(line, width))
	}
	return b.String()
}

func (d *Dashboard) renderStatus(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pipeline Status"))
	b.WriteString("\n")

	if d.progress != nil {
		completed, total := d.progress.Completed(), d.progress.Total()
		percent := 100
		if total > 0 {
			percent = int(completed * 100 / total)
		}
		fmt.Fprintf(&b, "%s %d / %d (%d%%)\n", boldStyle.Render("Progress"), completed, total, percent)

		active := 0
		if d.tracker != nil {
			active = d.tracker.ActiveCount()
		}
		fmt.Fprintf(&b, "Elapsed: %s | Active: %d", formatClock(d.progress.Elapsed()), active)
		if eta, ok := d.progress.EstimatedRemaining(); ok {
			fmt.Fprintf(&b, " | ETA: %s", formatClock(eta))
		}
		if finish, ok := d.progress.EstimatedFinish(); ok {
			fmt.Fprintf(&b, " (done ~%s)", finish.Format(time.TimeOnly))
		}
		b.WriteString("\n")
	}

	if line := d.renderPools(); line != "" {
		b.WriteString(truncate(line, width))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(width, 0))))
	b.WriteString("\n")
	b.WriteString(d.renderActive(width))
	return b.String()
}

// renderPools lists in-use/capacity for each pool created so far.
func (d *Dashboard) renderPools() string {
	if d.pools == nil {
		return ""
	}
	keys := d.pools.Keys()
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %d/%d", key, d.pools.InUse(key), d.pools.Capacity(key)))
	}
	return "Pools: " + strings.Join(parts, ", ")
}

func (d *Dashboard) renderActive(width int) string {
	inputWidth := max(width-34, 10)
	header := fmt.Sprintf("%-*s  %-20s  %s", inputWidth, "Input", "Stage", "Elapsed")

	rows := []string{boldStyle.Render(header)}
	if d.tracker != nil {
		for _, e := range d.tracker.Snapshot() {
			rows = append(rows, fmt.Sprintf("%-*s  %-20s  %s",
				inputWidth, truncate(e.Input, inputWidth),
				truncate(e.Stage, 20),
				formatMinutes(e.Elapsed)))
		}
	}
	if len(rows) == 1 {
		rows = append(rows, mutedStyle.Render("No active inputs"))
	}
	return strings.Join(rows, "\n")
}

// formatClock renders d as hh:mm:ss.
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMinutes renders d as mm:ss.
func formatMinutes(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
