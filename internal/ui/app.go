package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/igralabs/nodedeck/internal/logfmt"
	"github.com/igralabs/nodedeck/internal/metrics"
	"github.com/igralabs/nodedeck/internal/prefs"
	"github.com/igralabs/nodedeck/internal/tail"
)

// View represents the current active view.
type View int

const (
	ViewDeck View = iota
	ViewLogs
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Coord     *tail.Coordinator
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	Grouped   bool
	Source    string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	coord     *tail.Coordinator
	prefsPath string
	pollTick  time.Duration

	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool

	subID   string
	updates <-chan struct{}

	sources     []tail.SourceStatus
	metrics     map[string]metrics.Snapshot
	selectedRow int
	lastUpdated time.Time

	activeSource string
	grouped      bool
	follow       bool
	filter       levelFilter
	search       string
	searching    bool
	searchInput  textinput.Model
	logViewport  viewport.Model

	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = 250 * time.Millisecond
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:          ctx,
		coord:        opts.Coord,
		prefsPath:    prefsPath,
		pollTick:     pollTick,
		theme:        GetTheme(themeName),
		keys:         DefaultKeyMap(),
		currentView:  ViewDeck,
		grouped:      opts.Grouped,
		follow:       true,
		activeSource: opts.Source,
	}
	if opts.Coord != nil {
		m.subID, m.updates = opts.Coord.Subscribe()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd(m.pollTick))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.contentHeight())
			m.searchInput = textinput.New()
			m.searchInput.Placeholder = "search"
			m.searchInput.CharLimit = 120
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.contentHeight()
		}
		m.ready = true
		m.refreshData()
		return m, nil

	case tickMsg:
		return m.handleTick()
	}

	return m, nil
}

// contentHeight leaves room for the header, status line and footer.
func (m Model) contentHeight() int {
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

// handleTick drains the coalesced update mailbox and refreshes the model
// from the coordinator. The drain never blocks: no pending signal just
// means nothing changed since the last tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	changed := false
	if m.updates != nil {
		select {
		case <-m.updates:
			changed = true
		default:
		}
	}
	if changed || !m.ready {
		m.refreshData()
		m.lastUpdated = time.Now()
	} else if m.currentView == ViewDeck {
		// Tail states can change without new lines (stop, stale).
		m.refreshDeck()
	}
	return m, tickCmd(m.pollTick)
}

func (m *Model) refreshData() {
	m.refreshDeck()
	if m.currentView == ViewLogs {
		m.refreshLogViewport()
	}
}

func (m *Model) refreshDeck() {
	if m.coord == nil {
		return
	}
	m.sources = m.coord.Sources()
	m.metrics = m.coord.MetricsAll()
	if m.selectedRow >= len(m.sources) {
		m.selectedRow = len(m.sources) - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m *Model) refreshLogViewport() {
	if m.coord == nil || m.activeSource == "" {
		return
	}
	mode := tail.ModeChronological
	if m.grouped {
		mode = tail.ModeGrouped
	}
	v, err := m.coord.View(m.activeSource, mode, logfmt.Filters{
		Levels:    m.filter.levels(),
		Substring: m.search,
	})
	if err != nil {
		return
	}

	styles := m.theme.Styles()
	var b strings.Builder
	if m.grouped {
		for _, g := range v.Groups {
			b.WriteString(styles.LevelStyle(g.Level).Render(groupHeader(g)))
			b.WriteString("\n")
			for _, l := range g.Lines {
				b.WriteString("  ")
				b.WriteString(styles.Text.Render(formatLine(l)))
				b.WriteString("\n")
			}
		}
	} else {
		for _, l := range v.Lines {
			b.WriteString(styles.LevelStyle(l.Level).Render(formatLine(l)))
			b.WriteString("\n")
		}
	}
	m.logViewport.SetContent(b.String())
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "e":
		m.teardown()
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshData()
		return m, nil

	case "esc":
		m.currentView = ViewDeck
		return m, nil
	}

	switch m.currentView {
	case ViewDeck:
		return m.handleDeckKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) handleDeckKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.sources) == 0 {
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if m.selectedRow < len(m.sources)-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "home":
		m.selectedRow = 0
	case "G", "end":
		m.selectedRow = len(m.sources) - 1

	case "s":
		// Toggle the selected source's tail.
		st := m.sources[m.selectedRow]
		if st.State == tail.StateStopped {
			_ = m.coord.StartTail(st.ID)
		} else {
			_ = m.coord.StopTail(st.ID)
		}
		m.refreshDeck()

	case "enter", "l":
		st := m.sources[m.selectedRow]
		m.activeSource = st.ID
		m.currentView = ViewLogs
		m.follow = true
		if st.State == tail.StateStopped {
			_ = m.coord.StartTail(st.ID)
		}
		m.savePrefs()
		m.refreshLogViewport()
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "g":
		m.grouped = !m.grouped
		m.savePrefs()
		m.refreshLogViewport()
		return m, nil

	case " ":
		m.follow = !m.follow
		if m.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case "f":
		m.filter = m.filter.next()
		m.refreshLogViewport()
		return m, nil

	case "/":
		m.searching = true
		m.searchInput.SetValue(m.search)
		m.searchInput.Focus()
		return m, nil

	case "G", "end":
		m.follow = true
		m.logViewport.GotoBottom()
		return m, nil

	case "home":
		m.follow = false
		m.logViewport.GotoTop()
		return m, nil

	case "j", "down", "k", "up", "pgup", "pgdown", "ctrl+u", "ctrl+d":
		// Manual scrolling leaves follow mode.
		m.follow = false
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search = strings.TrimSpace(m.searchInput.Value())
		m.searching = false
		m.searchInput.Blur()
		m.refreshLogViewport()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:      m.theme.Name,
		Grouped:    m.grouped,
		LastSource: m.activeSource,
	})
}

func (m *Model) teardown() {
	if m.coord != nil && m.subID != "" {
		m.coord.Unsubscribe(m.subID)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	switch m.currentView {
	case ViewDeck:
		b.WriteString(m.renderDeck())
	case ViewLogs:
		b.WriteString(m.renderLogs())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// Messages

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
