package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotproxy/internal/models"
)

const (
	defaultLimit    = 50
	defaultInterval = 2 * time.Second
)

// EventSource lists the most recent journal entries, newest first.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]*models.AuthEvent, error)
}

type ModelOpts struct {
	Source   EventSource
	Limit    int
	Interval time.Duration
	Now      func() time.Time
}

// Model is the journal viewer state. It polls its source every interval until paused.
type Model struct {
	ctx       context.Context
	source    EventSource
	limit     int
	interval  time.Duration
	now       func() time.Time
	gen       int
	paused    bool
	events    int
	fetchedAt time.Time
	err       error
	width     int
	height    int
	list      list.Model
	help      help.Model
	keys      keyMap
}

var _ tea.Model = (*Model)(nil)

func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Auth journal"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)

	return &Model{
		ctx:      ctx,
		source:   opts.Source,
		limit:    opts.Limit,
		interval: opts.Interval,
		now:      opts.Now,
		list:     l,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-3, 0))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetch()
		case key.Matches(msg, m.keys.pause):
			m.paused = !m.paused
			m.gen++
			if m.paused {
				return m, nil
			}
			return m, m.fetch()
		}

	case Msg:
		switch msg.kind {
		case MsgEventsFetched:
			return m, m.applyFetch(msg.data.(fetchResult))
		case MsgTick:
			if m.paused || msg.data.(int) != m.gen {
				return m, nil
			}
			return m, m.fetch()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// applyFetch stores a poll result and starts the next poll generation. Older ticks become stale.
func (m *Model) applyFetch(res fetchResult) tea.Cmd {
	m.err = res.err
	m.fetchedAt = m.now()

	var cmds []tea.Cmd
	if res.err == nil {
		m.events = len(res.events)
		cmds = append(cmds, m.list.SetItems(eventItems(res.events, m.fetchedAt)))
	}

	m.gen++
	if !m.paused {
		cmds = append(cmds, m.tick(m.gen))
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		events, err := m.source.Recent(m.ctx, m.limit)
		return eventsFetchedMsg(events, err)
	}
}

func (m *Model) tick(gen int) tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg(gen)
	})
}

func (m *Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		m.status(),
		m.help.View(m.keys),
	)
}

func (m *Model) status() string {
	switch {
	case m.err != nil:
		return styles.Err(fmt.Sprintf("failed to load events: %v", m.err))
	case m.fetchedAt.IsZero():
		return styles.Help("loading...")
	}

	line := fmt.Sprintf("%d events • updated %s", m.events, m.fetchedAt.Local().Format(time.TimeOnly))
	if m.paused {
		return styles.Warn(line + " • paused")
	}
	return styles.Help(line)
}
