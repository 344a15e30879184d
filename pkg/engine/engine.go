// Package engine orchestrates the viewport pipeline: it owns the
// viewport, the spatial index, selection and highlight state, and the
// camera animator, and produces one render-tree frame per Step call.
//
// Ownership model: a single render loop (the TUI program, or a test)
// owns the Engine and calls its methods from one goroutine. The only
// concession to concurrency is the spatial index, which is swapped
// atomically on dataset changes so that a frame in progress never
// observes a partially-built index.
package engine

import (
	"sort"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/camera"
	"github.com/vanderheijden86/trackmap/pkg/debug"
	"github.com/vanderheijden86/trackmap/pkg/geometry"
	"github.com/vanderheijden86/trackmap/pkg/highlight"
	"github.com/vanderheijden86/trackmap/pkg/interaction"
	"github.com/vanderheijden86/trackmap/pkg/lod"
	"github.com/vanderheijden86/trackmap/pkg/metrics"
	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/render"
	"github.com/vanderheijden86/trackmap/pkg/spatial"
)

// fitPadding is the screen padding, in pixels, used when framing a freshly
// loaded graph.
const fitPadding = 40.0

// Callbacks notify the embedding UI of state changes. All callbacks fire
// synchronously from the engine method that caused them; nil fields are
// skipped.
type Callbacks struct {
	SelectionChanged     func(sel render.Selection)
	ContextMenuRequested func(nodeID string, screen r2.Vec)
	ViewportChanged      func()
	HoverChanged         func(nodeID string)
	GraphLoaded          func(report model.LoadReport)
}

// Options configure a new engine. Zero values select defaults.
type Options struct {
	ScreenW, ScreenH  float64
	ZoomMin, ZoomMax  float64
	LOD               lod.Options
	Palette           render.Palette
	AnimationDuration time.Duration
	ClickSlopPx       float64

	// Clock supplies the current time for gestures that start animations.
	// Defaults to time.Now; tests inject a simulated clock so input events
	// and Step share one timebase.
	Clock func() time.Time
}

// Engine is the single-owner orchestrator. Not safe for concurrent use;
// see the package comment for the ownership model.
type Engine struct {
	opts Options
	cb   Callbacks

	viewport   geometry.Viewport
	animator   *camera.Animator
	dispatcher *interaction.Dispatcher
	searcher   *highlight.Engine

	clock func() time.Time

	graph *model.Graph
	index atomic.Pointer[spatial.Index]

	selection  render.Selection
	showEdges  bool
	showLabels bool

	lastCulled lod.Result
	lastCounts render.Counts
}

// New returns an engine with no dataset loaded.
func New(opts Options, cb Callbacks) *Engine {
	if opts.ScreenW <= 0 {
		opts.ScreenW = 800
	}
	if opts.ScreenH <= 0 {
		opts.ScreenH = 600
	}
	opts.LOD.ShowEdges = true
	opts.LOD.ShowLabels = true

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		opts:       opts,
		cb:         cb,
		clock:      clock,
		animator:   camera.New(opts.AnimationDuration, nil),
		searcher:   highlight.NewEngine(),
		selection:  render.Selection{IDs: map[string]bool{}},
		showEdges:  true,
		showLabels: true,
	}
	e.viewport = geometry.NewViewport(opts.ScreenW, opts.ScreenH)
	if opts.ZoomMin > 0 {
		e.viewport.ZoomMin = opts.ZoomMin
	}
	if opts.ZoomMax > 0 {
		e.viewport.ZoomMax = opts.ZoomMax
	}
	e.dispatcher = interaction.New(&e.viewport, hitProxy{e}, sink{e}, interaction.Config{ClickSlopPx: opts.ClickSlopPx})
	return e
}

// hitProxy routes the dispatcher's hit tests through the atomically
// swapped index.
type hitProxy struct{ e *Engine }

func (h hitProxy) Nearest(p r2.Vec, maxRadius float64) string {
	defer metrics.Timer(metrics.HitTest)()
	return h.e.index.Load().Nearest(p, maxRadius)
}

// LoadGraph replaces the dataset. Selection and the search highlight
// reset, any camera animation is cancelled, and the view frames the new
// graph. Callers that want a query to survive a reload re-apply it via
// SetSearchQuery afterwards. Returns the validation report; dropped data
// is counted there, never fatal.
func (e *Engine) LoadGraph(g *model.Graph) model.LoadReport {
	defer metrics.Timer(metrics.GraphLoad)()

	e.graph = g
	e.animator.Cancel()
	e.resetSelection(true)
	e.searcher.SetQuery("")
	e.searcher.SetGraph(g)

	buildDone := metrics.Timer(metrics.IndexBuild)
	idx := spatial.Build(g.Nodes())
	buildDone()
	e.index.Store(idx)

	if min, max, ok := g.Bounds(); ok {
		bounds := geometry.Rect{Min: min, Max: max}
		e.viewport.WorldBounds = &bounds
		e.viewport.FitBounds(min, max, fitPadding)
	} else {
		e.viewport.WorldBounds = nil
	}

	report := g.Report()
	debug.Log("graph loaded: %s", report)
	if e.cb.GraphLoaded != nil {
		e.cb.GraphLoaded(report)
	}
	return report
}

// Graph returns the loaded dataset, or nil.
func (e *Engine) Graph() *model.Graph { return e.graph }

// Viewport returns a copy of the current viewport state.
func (e *Engine) Viewport() geometry.Viewport { return e.viewport }

// Resize updates the screen dimensions, keeping the world center fixed.
func (e *Engine) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	center := e.viewport.Center()
	e.viewport.ScreenW = w
	e.viewport.ScreenH = h
	e.viewport.CenterOn(center, 0)
	e.notifyViewport()
}

// SetSearchQuery updates the highlight query and returns the new set.
// Runs on every keystroke; debouncing belongs in the UI if it wants it.
func (e *Engine) SetSearchQuery(text string) highlight.Set {
	defer metrics.Timer(metrics.Highlight)()
	set := e.searcher.SetQuery(text)
	debug.Log("query %q matched %d nodes", text, len(set.NodeIDs))
	return set
}

// SearchQuery returns the active query text.
func (e *Engine) SearchQuery() string { return e.searcher.Query() }

// Highlight returns the active highlight set.
func (e *Engine) Highlight() highlight.Set { return e.searcher.Current() }

// SetEdgeVisibility toggles edge rendering.
func (e *Engine) SetEdgeVisibility(show bool) { e.showEdges = show }

// SetLabelVisibility toggles label rendering.
func (e *Engine) SetLabelVisibility(show bool) { e.showLabels = show }

// EdgesVisible reports the edge toggle state.
func (e *Engine) EdgesVisible() bool { return e.showEdges }

// LabelsVisible reports the label toggle state.
func (e *Engine) LabelsVisible() bool { return e.showLabels }

// Selection returns a copy of the current selection.
func (e *Engine) Selection() render.Selection {
	ids := make(map[string]bool, len(e.selection.IDs))
	for id := range e.selection.IDs {
		ids[id] = true
	}
	return render.Selection{Primary: e.selection.Primary, IDs: ids}
}

// SelectedIDs returns the selected node ids in lexical order.
func (e *Engine) SelectedIDs() []string {
	ids := make([]string, 0, len(e.selection.IDs))
	for id := range e.selection.IDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectNode applies a click-style selection programmatically: plain
// replaces the selection, additive toggles membership. Selecting a node
// starts a camera move centering it; the move is interruptible by any
// user gesture. Unknown ids are ignored.
func (e *Engine) SelectNode(id string, additive bool, now time.Time) {
	n := e.graph.Node(id)
	if n == nil {
		return
	}
	if additive {
		e.toggleSelected(id)
	} else {
		e.selection = render.Selection{Primary: id, IDs: map[string]bool{id: true}}
	}
	e.notifySelection()
	if e.selection.Has(id) {
		e.animator.CenterOn(e.viewport, n.Pos, 0, now)
	}
}

func (e *Engine) toggleSelected(id string) {
	if e.selection.IDs == nil {
		e.selection.IDs = map[string]bool{}
	}
	if e.selection.IDs[id] {
		delete(e.selection.IDs, id)
		if e.selection.Primary == id {
			e.selection.Primary = ""
			// Promote a deterministic survivor so there is always a primary
			// while the set is non-empty.
			for _, rest := range sortedKeys(e.selection.IDs) {
				e.selection.Primary = rest
				break
			}
		}
	} else {
		e.selection.IDs[id] = true
		e.selection.Primary = id
	}
}

// ClearSelection empties the selection set.
func (e *Engine) ClearSelection() {
	e.resetSelection(false)
}

func (e *Engine) resetSelection(silent bool) {
	hadAny := e.selection.Primary != "" || len(e.selection.IDs) > 0
	e.selection = render.Selection{IDs: map[string]bool{}}
	if hadAny && !silent {
		e.notifySelection()
	}
}

// CenterOnNode starts an animated camera move to the node, keeping zoom.
// Returns false for unknown ids.
func (e *Engine) CenterOnNode(id string, now time.Time) bool {
	n := e.graph.Node(id)
	if n == nil {
		return false
	}
	e.animator.CenterOn(e.viewport, n.Pos, 0, now)
	return true
}

// FitToView animates the camera to frame the whole graph.
func (e *Engine) FitToView(now time.Time) {
	min, max, ok := e.graph.Bounds()
	if !ok {
		return
	}
	target := e.viewport
	target.FitBounds(min, max, fitPadding)
	e.animator.AnimateTo(e.viewport, target, now)
}

// Animating reports whether a camera move is in flight.
func (e *Engine) Animating() bool { return e.animator.Animating() }

// PanBy shifts the view by a screen-space delta (keyboard panning).
// Cancels any camera animation first, like every other user gesture.
func (e *Engine) PanBy(dx, dy float64) {
	e.animator.Cancel()
	e.viewport.PanBy(dx, dy)
	e.notifyViewport()
}

// ZoomBy scales zoom around the screen center (keyboard zooming).
func (e *Engine) ZoomBy(factor float64) {
	e.animator.Cancel()
	e.viewport.ZoomBy(factor, r2.Vec{X: e.viewport.ScreenW / 2, Y: e.viewport.ScreenH / 2})
	e.notifyViewport()
}

// Pointer and wheel events pass through to the interaction dispatcher.

func (e *Engine) PointerDown(screen r2.Vec, b interaction.Button, mods interaction.Modifiers) {
	e.dispatcher.PointerDown(screen, b, mods)
}

func (e *Engine) PointerMove(screen r2.Vec) { e.dispatcher.PointerMove(screen) }
func (e *Engine) PointerUp(screen r2.Vec)   { e.dispatcher.PointerUp(screen) }
func (e *Engine) PointerLeave()             { e.dispatcher.PointerLeave() }

func (e *Engine) Wheel(screen r2.Vec, deltaY float64) { e.dispatcher.Wheel(screen, deltaY) }

// HoverID returns the node currently under the pointer, or "".
func (e *Engine) HoverID() string { return e.dispatcher.HoverID() }

// Frame is the output of one Step: the primitives to draw plus the
// culling result they came from.
type Frame struct {
	Primitives []render.Primitive
	Counts     render.Counts
	Culled     lod.Result
	Animating  bool
}

// Step advances the camera animation to now and produces the frame's
// primitive list. The caller drives it at its own cadence; time only
// flows through the now parameter, so tests run on a simulated clock.
func (e *Engine) Step(now time.Time) Frame {
	frameStart := time.Now()
	defer func() {
		d := time.Since(frameStart)
		metrics.FrameTotal.Record(d)
		metrics.Frames.Record(d)
	}()

	if out, applied, done := e.animator.Step(e.viewport, now); applied {
		e.viewport = out
		e.notifyViewport()
		if done {
			debug.Log("camera animation complete at %v", e.viewport.Center())
		}
	}

	cullDone := metrics.Timer(metrics.Cull)
	opts := e.opts.LOD
	opts.ShowEdges = e.showEdges
	opts.ShowLabels = e.showLabels
	culled := lod.Cull(e.viewport, e.index.Load(), e.graph, opts)
	cullDone()

	buildDone := metrics.Timer(metrics.RenderBuild)
	prims := render.Build(render.Input{
		Graph:     e.graph,
		Culled:    culled,
		Viewport:  e.viewport,
		Highlight: e.searcher.Current(),
		Selection: e.selection,
		HoverID:   e.dispatcher.HoverID(),
		Palette:   e.opts.Palette,
	})
	buildDone()

	e.lastCulled = culled
	e.lastCounts = render.Count(prims)
	return Frame{
		Primitives: prims,
		Counts:     e.lastCounts,
		Culled:     culled,
		Animating:  e.animator.Animating(),
	}
}

// Snapshot summarizes engine performance and the last frame's work.
type Snapshot struct {
	Frames       metrics.FrameStats    `json:"frames"`
	Timings      []metrics.TimingStats `json:"timings"`
	NodeCount    int                   `json:"node_count"`
	EdgeCount    int                   `json:"edge_count"`
	VisibleNodes int                   `json:"visible_nodes"`
	VisibleEdges int                   `json:"visible_edges"`
	Truncated    bool                  `json:"truncated"`
}

// PerformanceSnapshot reports frame statistics and the most recent frame's
// visible counts, for the status bar overlay and for profiling exports.
func (e *Engine) PerformanceSnapshot() Snapshot {
	s := Snapshot{
		Frames:       metrics.Frames.Stats(),
		Timings:      metrics.AllTimingStats(),
		VisibleNodes: e.lastCulled.VisibleNodeCount(),
		VisibleEdges: len(e.lastCulled.Edges),
		Truncated:    e.lastCulled.Truncated,
	}
	if e.graph != nil {
		s.NodeCount = e.graph.Len()
		s.EdgeCount = len(e.graph.Edges())
	}
	return s
}

func (e *Engine) notifySelection() {
	if e.cb.SelectionChanged != nil {
		e.cb.SelectionChanged(e.Selection())
	}
}

func (e *Engine) notifyViewport() {
	if e.cb.ViewportChanged != nil {
		e.cb.ViewportChanged()
	}
}

// sink adapts the engine to the dispatcher's event interface.
type sink struct{ e *Engine }

func (s sink) GestureStarted() { s.e.animator.Cancel() }

func (s sink) ViewportChanged() { s.e.notifyViewport() }

func (s sink) NodeClicked(id string, additive bool) {
	s.e.SelectNode(id, additive, s.e.clock())
}

func (s sink) EmptyClicked(additive bool) {
	if additive {
		return // additive miss keeps the current set
	}
	s.e.ClearSelection()
}

func (s sink) ContextMenuRequested(id string, screen r2.Vec) {
	if s.e.cb.ContextMenuRequested != nil {
		s.e.cb.ContextMenuRequested(id, screen)
	}
}

func (s sink) NodeHovered(id string) {
	if s.e.cb.HoverChanged != nil {
		s.e.cb.HoverChanged(id)
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
