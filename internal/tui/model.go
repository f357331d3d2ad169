// go-ucomms
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ucomms.
//
// go-ucomms is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ucomms is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ucomms; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package tui is the interactive frame monitor behind `ucomms listen --tui`.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxEntries     = 1000
	metricsRefresh = 250 * time.Millisecond
)

// Monitor is the part of polling.Monitor the model drives
type Monitor interface {
	Metrics() polling.Metrics
	Mode() polling.ReceiverMode
	Pause()
	Resume()
	IsPaused() bool
}

// FrameMsg reports a completed frame
type FrameMsg struct {
	At    time.Time
	Frame ucomms.FrameContext
}

// ErrorMsg reports a monitor error
type ErrorMsg struct {
	At  time.Time
	Err error
}

// AbortMsg reports a discarded partial frame
type AbortMsg struct {
	At     time.Time
	Reason polling.AbortReason
}

// StoppedMsg reports that the monitor loop ended
type StoppedMsg struct {
	Err error
}

type tickMsg time.Time

type entry struct {
	at      time.Time
	err     error
	payload []byte
	reason  polling.AbortReason
	kind    int
}

const (
	entryFrame = iota
	entryError
	entryAbort
)

// Model is the bubbletea model for the live monitor
type Model struct {
	monitor  Monitor
	stopErr  error
	help     help.Model
	keys     Keys
	title    string
	entries  []entry
	viewport viewport.Model
	metrics  polling.Metrics
	width    int
	ready    bool
	hex      bool
	stopped  bool
}

// New creates a model for monitor
func New(monitor Monitor, title string) *Model {
	return &Model{
		monitor:  monitor,
		title:    title,
		keys:     NewKeys(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
	}
}

func tick() tea.Cmd {
	return tea.Tick(metricsRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, border and status bar take one line each
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 1)
		m.ready = true
		m.refresh()

	case FrameMsg:
		m.add(entry{kind: entryFrame, at: msg.At, payload: msg.Frame.Payload()})

	case ErrorMsg:
		m.add(entry{kind: entryError, at: msg.At, err: msg.Err})

	case AbortMsg:
		m.add(entry{kind: entryAbort, at: msg.At, reason: msg.Reason})

	case StoppedMsg:
		m.stopped = true
		m.stopErr = msg.Err
		m.metrics = m.monitor.Metrics()

	case tickMsg:
		m.metrics = m.monitor.Metrics()
		if m.stopped {
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Pause):
			if m.monitor.IsPaused() {
				m.monitor.Resume()
			} else {
				m.monitor.Pause()
			}
		case key.Matches(msg, m.keys.Clear):
			m.entries = nil
			m.refresh()
		case key.Matches(msg, m.keys.ToggleHex):
			m.hex = !m.hex
			m.refresh()
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) add(e entry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	m.refresh()
}

func (m *Model) refresh() {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, m.render(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) render(e entry) string {
	ts := timeStyle.Render(e.at.Format("15:04:05.000"))
	switch e.kind {
	case entryError:
		label := "ERROR"
		if kind := ucomms.GetErrorKind(e.err); kind != ucomms.KindUnknown {
			label = kind.String()
		}
		return fmt.Sprintf("%s %s %v", ts, errorStyle.Render(label), e.err)
	case entryAbort:
		return fmt.Sprintf("%s %s %s", ts, abortStyle.Render("ABORT"), e.reason)
	default:
		return fmt.Sprintf("%s %s %2d %s", ts, frameStyle.Render("FRAME"), len(e.payload), m.formatPayload(e.payload))
	}
}

func (m *Model) formatPayload(p []byte) string {
	if m.hex {
		return fmt.Sprintf("% X", p)
	}
	return fmt.Sprintf("%q", string(p))
}

func (m *Model) View() string {
	content := "Waiting for window size..."
	if m.ready {
		content = m.viewport.View()
	}

	views := []string{m.header(), contentBorderStyle.Render(content)}
	if m.help.ShowAll {
		views = append(views, helpBoxStyle.Render(m.help.View(m.keys)))
	}
	views = append(views, m.statusBar())
	return lipgloss.JoinVertical(lipgloss.Left, views...)
}

func (m *Model) header() string {
	var state string
	switch {
	case m.stopped:
		state = pausedStyle.Render("STOPPED")
	case m.monitor.IsPaused():
		state = pausedStyle.Render("PAUSED")
	case m.monitor.Mode() == polling.ModeInFrame:
		state = inFrameStyle.Render("IN FRAME")
	default:
		state = huntingStyle.Render("HUNTING")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render(m.title), " ", state, "  ", m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) statusBar() string {
	s := fmt.Sprintf("rx %d B  frames %d  aborted %d  errors %d  discarded %d B",
		m.metrics.BytesRead,
		m.metrics.FramesCompleted,
		m.metrics.FramesAborted,
		m.metrics.ProtocolErrors+m.metrics.InterpreterErrors+m.metrics.ReadErrors,
		m.metrics.BytesDiscarded)
	if m.stopErr != nil {
		s += "  " + errorStyle.Render(m.stopErr.Error())
	}
	if m.width > 0 {
		return statusStyle.Width(m.width).Render(s)
	}
	return statusStyle.Render(s)
}
