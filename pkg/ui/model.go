// Package ui is the bubbletea frontend. It owns the terminal, translates
// key and mouse input into engine calls, and rasterizes each frame onto
// a braille canvas. All engine access happens on the bubbletea update
// loop, which satisfies the engine's single-owner model.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/trackmap/internal/datasource"
	"github.com/vanderheijden86/trackmap/pkg/config"
	"github.com/vanderheijden86/trackmap/pkg/debug"
	"github.com/vanderheijden86/trackmap/pkg/engine"
	"github.com/vanderheijden86/trackmap/pkg/export"
	"github.com/vanderheijden86/trackmap/pkg/interaction"
	"github.com/vanderheijden86/trackmap/pkg/lod"
	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/watcher"
)

const (
	headerRows = 1
	statusRows = 1
	overlayRow = 4

	frameInterval = time.Second / 30

	// Wheel steps map to the dispatcher's deltaY divisor so one notch is
	// a ~22% zoom change.
	wheelStep = 110.0

	panStepCells = 4
)

// Options configures the TUI model.
type Options struct {
	Config      config.Config
	Graph       *model.Graph
	LibraryName string
	LibraryPath string // enables live reload when set
}

type frameMsg time.Time

type libraryChangedMsg struct{}

type watchErrMsg struct{ err error }

// Model is the bubbletea model for the track map.
type Model struct {
	eng   *engine.Engine
	theme Theme
	keys  keyMap

	canvas *Canvas
	frame  engine.Frame

	search    textinput.Model
	searching bool

	helpBubble  help.Model
	helpScreen  *helpView
	showHelp    bool
	showOverlay bool

	libraryName string
	libraryPath string
	watch       *watcher.Watcher
	watchErrs   chan error

	width, height int
	ready         bool

	status    string
	statusErr bool

	quitting bool
}

// New builds the model and its engine from config.
func New(opts Options) *Model {
	theme := ThemeByName(opts.Config.UI.Theme, lipgloss.DefaultRenderer())

	eng := engine.New(engine.Options{
		ZoomMin:           opts.Config.Viewport.ZoomMin,
		ZoomMax:           opts.Config.Viewport.ZoomMax,
		AnimationDuration: opts.Config.Viewport.AnimationDuration,
		Palette:           theme.Palette(),
		LOD:               lodOptions(opts.Config),
	}, engine.Callbacks{})

	// Size the engine to the default canvas before loading so the initial
	// fit-to-bounds frames the graph at terminal resolution. A real
	// WindowSizeMsg arrives right after Start and re-fits nothing; it only
	// adjusts the screen extent around the same center.
	eng.Resize(float64(80*MicroPerCellX), float64(22*MicroPerCellY))
	eng.SetEdgeVisibility(opts.Config.ShowEdges())
	eng.SetLabelVisibility(opts.Config.ShowLabels())
	if opts.Graph != nil {
		eng.LoadGraph(opts.Graph)
	}

	search := textinput.New()
	search.Placeholder = "title, artist, key…"
	search.Prompt = "/"
	search.CharLimit = 64

	m := &Model{
		eng:         eng,
		theme:       theme,
		keys:        defaultKeyMap(),
		search:      search,
		helpBubble:  help.New(),
		helpScreen:  &helpView{},
		libraryName: opts.LibraryName,
		libraryPath: opts.LibraryPath,
		showOverlay: opts.Config.UI.ShowOverlay,
		canvas:      NewCanvas(80, 22),
	}

	if opts.LibraryPath != "" {
		errCh := make(chan error, 4)
		w, err := watcher.New(opts.LibraryPath, watcher.WithOnError(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}))
		if err == nil && w.Start() == nil {
			m.watch = w
			m.watchErrs = errCh
		}
	}

	return m
}

func lodOptions(cfg config.Config) lod.Options {
	return lod.Options{
		LabelZoomThreshold: cfg.Render.LabelZoomThreshold,
		MaxRenderNodes:     cfg.Render.MaxRenderNodes,
		MaxRenderEdges:     cfg.Render.MaxRenderEdges,
		ShowEdges:          cfg.ShowEdges(),
		ShowLabels:         cfg.ShowLabels(),
	}
}

// Engine exposes the engine for tests and the caller that wires exports.
func (m *Model) Engine() *engine.Engine { return m.eng }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frameTick()}
	if m.watch != nil {
		cmds = append(cmds, waitForLibraryChange(m.watch), waitForWatchErr(m.watchErrs))
	}
	return tea.Batch(cmds...)
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitForLibraryChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return libraryChangedMsg{}
	}
}

func waitForWatchErr(ch chan error) tea.Cmd {
	return func() tea.Msg {
		return watchErrMsg{err: <-ch}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case frameMsg:
		m.frame = m.eng.Step(time.Time(msg))
		return m, frameTick()

	case libraryChangedMsg:
		m.reloadLibrary()
		return m, waitForLibraryChange(m.watch)

	case watchErrMsg:
		m.setStatus(msg.err.Error(), true)
		return m, waitForWatchErr(m.watchErrs)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// layout resizes the canvas and the engine's screen space to the current
// terminal geometry.
func (m *Model) layout() {
	rows := m.height - headerRows - statusRows
	if m.showOverlay {
		rows -= overlayRow
	}
	if rows < 3 {
		rows = 3
	}
	cols := m.width
	if cols < 10 {
		cols = 10
	}
	m.canvas = NewCanvas(cols, rows)
	m.eng.Resize(float64(cols*MicroPerCellX), float64(rows*MicroPerCellY))
}

func (m *Model) reloadLibrary() {
	before := m.eng.Graph()
	g, err := datasource.LoadGraph(context.Background(), m.libraryPath)
	if err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", err), true)
		return
	}
	m.eng.LoadGraph(g)
	// Loading clears the engine's search state; restore the live query so a
	// background reload does not drop an active filter.
	if q := m.search.Value(); q != "" {
		m.eng.SetSearchQuery(q)
	}
	diff := datasource.Diff(before, g)
	m.setStatus(fmt.Sprintf("library reloaded: %s", diff), false)
	debug.Log("library reloaded: %s", diff)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	// Translate the cell under the cursor into engine screen space; rows
	// above the canvas are chrome.
	canvasY := msg.Y - headerRows
	if m.showOverlay {
		canvasY -= overlayRow
	}
	cols, rows := m.canvas.Size()
	inCanvas := msg.X >= 0 && msg.X < cols && canvasY >= 0 && canvasY < rows
	screen := CellToScreen(msg.X, canvasY)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if inCanvas {
			m.eng.Wheel(screen, -wheelStep)
		}
		return
	case tea.MouseButtonWheelDown:
		if inCanvas {
			m.eng.Wheel(screen, wheelStep)
		}
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if !inCanvas {
			return
		}
		button := buttonFor(msg.Button)
		m.eng.PointerDown(screen, button, modsFor(msg))
	case tea.MouseActionMotion:
		if inCanvas {
			m.eng.PointerMove(screen)
		} else {
			m.eng.PointerLeave()
		}
	case tea.MouseActionRelease:
		m.eng.PointerUp(screen)
	}
}

func buttonFor(b tea.MouseButton) interaction.Button {
	if b == tea.MouseButtonRight {
		return interaction.ButtonRight
	}
	return interaction.ButtonLeft
}

func modsFor(msg tea.MouseMsg) interaction.Modifiers {
	return interaction.Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "up", "k":
			m.helpScreen.scroll(-1, m.helpVisibleRows())
		case "down", "j":
			m.helpScreen.scroll(1, m.helpVisibleRows())
		case "esc", "?", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.eng.SetSearchQuery("")
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.eng.SetSearchQuery(m.search.Value())
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.watch != nil {
			m.watch.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ClearSearch):
		if m.eng.SearchQuery() != "" {
			m.search.SetValue("")
			m.eng.SetSearchQuery("")
		} else {
			m.eng.ClearSelection()
		}

	case key.Matches(msg, m.keys.Clear):
		m.eng.ClearSelection()

	case key.Matches(msg, m.keys.Copy):
		m.copySelection()

	case key.Matches(msg, m.keys.Fit):
		m.eng.FitToView(time.Now())

	case key.Matches(msg, m.keys.ToggleEdges):
		m.eng.SetEdgeVisibility(!m.eng.EdgesVisible())

	case key.Matches(msg, m.keys.ToggleLabels):
		m.eng.SetLabelVisibility(!m.eng.LabelsVisible())

	case key.Matches(msg, m.keys.Overlay):
		m.showOverlay = !m.showOverlay
		m.layout()

	case key.Matches(msg, m.keys.Snapshot):
		m.saveSnapshot()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.ZoomIn):
		m.eng.ZoomBy(1.2)

	case key.Matches(msg, m.keys.ZoomOut):
		m.eng.ZoomBy(1 / 1.2)

	case key.Matches(msg, m.keys.PanUp):
		m.eng.PanBy(0, float64(panStepCells*MicroPerCellY))
	case key.Matches(msg, m.keys.PanDown):
		m.eng.PanBy(0, -float64(panStepCells*MicroPerCellY))
	case key.Matches(msg, m.keys.PanLeft):
		m.eng.PanBy(float64(panStepCells*MicroPerCellX), 0)
	case key.Matches(msg, m.keys.PanRight):
		m.eng.PanBy(-float64(panStepCells*MicroPerCellX), 0)
	}

	return m, nil
}

func (m *Model) copySelection() {
	ids := m.eng.SelectedIDs()
	if len(ids) == 0 {
		m.setStatus("nothing selected", false)
		return
	}
	id := m.eng.Selection().Primary
	if id == "" {
		id = ids[0]
	}
	if err := clipboard.WriteAll(id); err != nil {
		m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("copied %s", id), false)
}

func (m *Model) saveSnapshot() {
	dir := filepath.Join(config.DataDir(), "snapshots")
	path := filepath.Join(dir, "trackmap-"+time.Now().Format("20060102-150405")+".svg")

	scene := export.FromFrame(m.frame, m.eng.Viewport(), m.eng.Graph())
	title := m.libraryName
	if title == "" {
		title = "trackmap"
	}
	if err := export.Save(scene, export.Options{Path: path, Title: title}); err != nil {
		m.setStatus(fmt.Sprintf("snapshot failed: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("snapshot saved to %s", path), false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) helpVisibleRows() int {
	rows := m.height - 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading…"
	}
	if m.showHelp {
		return m.theme.Header.Render("trackmap help") + "\n" +
			m.helpScreen.view(m.width, m.helpVisibleRows()) + "\n" +
			m.theme.StatusBar.Render("↑/↓ scroll · esc close")
	}

	var out string
	out = m.headerView()
	if m.showOverlay {
		out += "\n" + m.overlayView()
	}

	m.canvas.Clear()
	m.canvas.Draw(m.frame.Primitives)
	out += "\n" + m.canvas.Render(m.theme)

	out += "\n" + m.statusView()
	return out
}

func (m *Model) headerView() string {
	title := "trackmap"
	if m.libraryName != "" {
		title += " · " + m.libraryName
	}
	head := m.theme.Header.Render(title)

	if m.searching {
		return head + " " + m.search.View()
	}
	if q := m.eng.SearchQuery(); q != "" {
		return head + " " + m.theme.SearchHint.Render("/"+q)
	}
	return head + " " + m.theme.SearchHint.Render(m.helpBubble.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) statusView() string {
	if m.status != "" {
		st := m.theme.StatusBar
		if m.statusErr {
			st = m.theme.StatusWarn
		}
		return st.Render(truncateCells(m.status, m.width))
	}

	g := m.eng.Graph()
	total := 0
	if g != nil {
		total = g.Len()
	}
	line := fmt.Sprintf("%d/%d tracks · %d edges · zoom %.2f",
		m.frame.Counts.Nodes, total, m.frame.Counts.Edges, m.eng.Viewport().Zoom)
	if m.frame.Culled.Truncated {
		line += " · truncated"
	}
	if ids := m.eng.SelectedIDs(); len(ids) > 0 {
		line += " · " + selectionLabel(g, m.eng.Selection().Primary, len(ids))
	} else if hover := m.eng.HoverID(); hover != "" {
		line += " · " + selectionLabel(g, hover, 1)
	}
	if m.frame.Animating {
		line += " · ~"
	}
	return m.theme.StatusBar.Render(truncateCells(line, m.width))
}

func selectionLabel(g *model.Graph, id string, count int) string {
	label := id
	if g != nil {
		if n := g.Node(id); n != nil && n.Track != nil {
			label = fmt.Sprintf("%s (%s)", n.Track.Title, id)
		}
	}
	if count > 1 {
		label += fmt.Sprintf(" +%d", count-1)
	}
	return label
}

func (m *Model) overlayView() string {
	snap := m.eng.PerformanceSnapshot()
	lines := fmt.Sprintf(
		"frames %d  p50 %.2fms  p95 %.2fms\nvisible %d/%d nodes  %d/%d edges",
		snap.Frames.Frames, snap.Frames.P50Ms, snap.Frames.P95Ms,
		snap.VisibleNodes, snap.NodeCount, snap.VisibleEdges, snap.EdgeCount)
	return m.theme.Overlay.Render(lines)
}
