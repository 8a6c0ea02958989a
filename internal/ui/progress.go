// Package ui renders scan progress in the terminal with Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rustsafe/internal/driver"
)

type fileState uint8

const (
	stateQueued fileState = iota
	stateLoading
	stateParsing
	stateScanning
	stateDone
	stateCached
	stateFailed
	numStates
)

var (
	stateLabels = [numStates]string{"queued", "loading", "parsing", "scanning", "done", "cached", "error"}
	// share of a file's work finished in each state
	stateWeight = [numStates]float64{0, 0.1, 0.3, 0.6, 1, 1, 1}
	stateColor  = [numStates]lipgloss.Color{"7", "6", "6", "6", "2", "2", "1"}
)

func (s fileState) String() string { return stateLabels[s] }
func (s fileState) active() bool   { return s >= stateLoading && s <= stateScanning }
func (s fileState) finished() bool { return s >= stateDone }

// stateFor maps a driver event onto a file state. ok is false for events
// that do not move the file.
func stateFor(ev driver.Event) (state fileState, ok bool) {
	switch ev.Status {
	case driver.StatusQueued:
		return stateQueued, true
	case driver.StatusError:
		return stateFailed, true
	case driver.StatusDone:
		if ev.Stage == driver.StageCache {
			return stateCached, true
		}
		return stateDone, true
	case driver.StatusWorking:
		switch ev.Stage {
		case driver.StageLoad:
			return stateLoading, true
		case driver.StageParse:
			return stateParsing, true
		case driver.StageAssist:
			return stateScanning, true
		}
	}
	return 0, false
}

const (
	maxActiveRows = 8
	maxErrorRows  = 5
)

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model

	order  []string // listing order
	states map[string]fileState
	counts [numStates]int
	errors []string

	slowest     string
	slowestTime time.Duration

	width int
	done  bool
}

type (
	eventMsg driver.Event
	doneMsg  struct{}
)

// NewProgressModel returns a Bubble Tea model that renders scan progress.
// files must use the same paths the driver reports in Event.File; events
// for other paths are ignored. The model quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		order:   files,
		states:  make(map[string]fileState, len(files)),
		width:   80,
	}
	for _, f := range files {
		m.states[f] = stateQueued
	}
	m.counts[stateQueued] = len(files)
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(driver.Event(msg)), m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	prev, known := m.states[ev.File]
	next, ok := stateFor(ev)
	// a finished file never goes back
	if !known || !ok || prev.finished() {
		return nil
	}
	m.counts[prev]--
	m.counts[next]++
	m.states[ev.File] = next

	if next == stateFailed && ev.Err != nil {
		m.errors = append(m.errors, fmt.Sprintf("%s: %v", ev.File, ev.Err))
	}
	if ev.Elapsed > m.slowestTime {
		m.slowest, m.slowestTime = ev.File, ev.Elapsed
	}
	return m.bar.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if len(m.order) == 0 {
		return 1
	}
	var sum float64
	for s, n := range m.counts {
		sum += float64(n) * stateWeight[s]
	}
	return sum / float64(len(m.order))
}

func (m *progressModel) finishedCount() int {
	return m.counts[stateDone] + m.counts[stateCached] + m.counts[stateFailed]
}

func (m *progressModel) View() string {
	var b strings.Builder

	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(header))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d/%d files, %d cached, %d errors\n\n",
		m.finishedCount(), len(m.order), m.counts[stateCached], m.counts[stateFailed])

	nameWidth := max(m.width-16, 20)
	shown := 0
	for _, path := range m.order {
		st := m.states[path]
		if !st.active() {
			continue
		}
		if shown == maxActiveRows {
			fmt.Fprintf(&b, "  ... %d more in flight\n", m.activeCount()-shown)
			break
		}
		fmt.Fprintf(&b, "  %s %s\n", styled(st, fmt.Sprintf("%10s", st)), truncate(path, nameWidth))
		shown++
	}

	errs := m.errors
	if len(errs) > maxErrorRows {
		errs = errs[len(errs)-maxErrorRows:]
	}
	for _, e := range errs {
		fmt.Fprintf(&b, "  %s %s\n", styled(stateFailed, fmt.Sprintf("%10s", stateFailed)), truncate(e, nameWidth))
	}
	if m.done && m.slowest != "" {
		fmt.Fprintf(&b, "  slowest: %s (%s)\n", truncate(m.slowest, nameWidth), m.slowestTime.Round(time.Millisecond))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) activeCount() int {
	return m.counts[stateLoading] + m.counts[stateParsing] + m.counts[stateScanning]
}

func styled(s fileState, text string) string {
	return lipgloss.NewStyle().Foreground(stateColor[s]).Render(text)
}

// truncate shortens value to width terminal cells, marking the cut with "...".
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
