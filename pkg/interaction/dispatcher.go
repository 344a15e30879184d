// Package interaction translates raw pointer/wheel/keyboard input into
// semantic viewport and selection actions.
//
// A single Dispatcher instance is the only entry point for input: every
// event runs synchronously through one state machine, so no two pointer
// events can interleave a read-modify-write on the viewport. This replaces
// the scattered per-event listeners of canvas viewers with an explicit
// Idle/Panning automaton.
package interaction

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
)

// DragThresholdPx is the screen distance a pressed pointer must travel
// before a press becomes a pan instead of a click. Matches the 3px
// threshold common in canvas viewers.
const DragThresholdPx = 3.0

// wheelDivisor converts wheel delta into a zoom factor; one notch of a
// typical wheel (delta 100) scales by 1.2.
const wheelDivisor = 500.0

// Button identifies the pointer button of an event.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

// Modifiers carries the keyboard state accompanying a pointer event.
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

// Additive reports whether a click with these modifiers should extend the
// selection set instead of replacing it.
func (m Modifiers) Additive() bool { return m.Ctrl || m.Shift }

// State is the dispatcher's automaton state.
type State int

const (
	StateIdle    State = iota
	StatePressed       // button down, drag threshold not yet exceeded
	StatePanning
)

// HitTester resolves a world point to the nearest node id, or "" when
// nothing is within maxRadius. The spatial index satisfies this.
type HitTester interface {
	Nearest(p r2.Vec, maxRadius float64) string
}

// Sink receives the semantic events the dispatcher emits. All methods are
// invoked synchronously from the input event that caused them.
type Sink interface {
	// ViewportChanged fires after any pan or zoom mutation.
	ViewportChanged()
	// NodeClicked fires when a click resolves to a node. additive is true
	// when Ctrl/Shift was held.
	NodeClicked(id string, additive bool)
	// EmptyClicked fires when a click lands on empty canvas.
	EmptyClicked(additive bool)
	// ContextMenuRequested fires on right-click; id is "" on empty space.
	ContextMenuRequested(id string, screen r2.Vec)
	// NodeHovered fires when the hover target changes; id may be "".
	NodeHovered(id string)
	// GestureStarted fires when user input takes over the camera (press or
	// wheel). The engine uses it to cancel in-flight animations.
	GestureStarted()
}

// Config tunes hit-testing.
type Config struct {
	// ClickSlopPx is the screen-space radius used to resolve clicks to
	// nodes. Defaults to 12px.
	ClickSlopPx float64
}

func (c Config) clickSlop() float64 {
	if c.ClickSlopPx > 0 {
		return c.ClickSlopPx
	}
	return 12
}

// Dispatcher is the input state machine. Not safe for concurrent use; the
// render loop owns it (single frame producer, see the engine).
type Dispatcher struct {
	viewport *geometry.Viewport
	hits     HitTester
	sink     Sink
	cfg      Config

	state     State
	button    Button
	downPos   r2.Vec
	lastPos   r2.Vec
	downMods  Modifiers
	hoverID   string
	downOnPad bool // press started on the canvas
}

// New wires a dispatcher to the viewport it mutates, the hit tester it
// resolves clicks against, and the sink receiving semantic events.
func New(v *geometry.Viewport, hits HitTester, sink Sink, cfg Config) *Dispatcher {
	return &Dispatcher{viewport: v, hits: hits, sink: sink, cfg: cfg}
}

// SetHitTester swaps the hit tester after a dataset change.
func (d *Dispatcher) SetHitTester(h HitTester) { d.hits = h }

// State returns the current automaton state, for tests and overlays.
func (d *Dispatcher) State() State { return d.state }

// HoverID returns the node currently under the pointer, or "".
func (d *Dispatcher) HoverID() string { return d.hoverID }

// PointerDown begins a press. Any in-flight camera animation is cancelled
// via GestureStarted before the first mutation.
func (d *Dispatcher) PointerDown(screen r2.Vec, b Button, mods Modifiers) {
	if !finiteVec(screen) {
		return
	}
	d.state = StatePressed
	d.button = b
	d.downPos = screen
	d.lastPos = screen
	d.downMods = mods
	d.downOnPad = true
	d.sink.GestureStarted()
}

// PointerMove updates hover state and, while pressed, drives panning.
func (d *Dispatcher) PointerMove(screen r2.Vec) {
	if !finiteVec(screen) {
		return
	}
	switch d.state {
	case StateIdle:
		d.updateHover(screen)
	case StatePressed:
		if dist(screen, d.downPos) > DragThresholdPx {
			d.state = StatePanning
			d.panTo(screen)
		}
	case StatePanning:
		d.panTo(screen)
	}
	d.lastPos = screen
}

func (d *Dispatcher) panTo(screen r2.Vec) {
	d.viewport.PanBy(screen.X-d.lastPos.X, screen.Y-d.lastPos.Y)
	d.sink.ViewportChanged()
}

// PointerUp completes the gesture: a press that never exceeded the drag
// threshold resolves as a click (or right-click); a pan just ends, keeping
// the final offset.
func (d *Dispatcher) PointerUp(screen r2.Vec) {
	if !finiteVec(screen) {
		screen = d.lastPos
	}
	state := d.state
	d.state = StateIdle
	if !d.downOnPad {
		return
	}
	d.downOnPad = false

	if state != StatePressed {
		return // pan finished, no click
	}

	id := d.hitAt(screen)
	if d.button == ButtonRight {
		d.sink.ContextMenuRequested(id, screen)
		return
	}
	if id != "" {
		d.sink.NodeClicked(id, d.downMods.Additive())
	} else {
		// Clicking empty space is a valid action, not an error: selection
		// clears, everything else stays intact.
		d.sink.EmptyClicked(d.downMods.Additive())
	}
}

// PointerLeave aborts any gesture in progress, keeping the pan applied so
// far, and clears hover.
func (d *Dispatcher) PointerLeave() {
	d.state = StateIdle
	d.downOnPad = false
	if d.hoverID != "" {
		d.hoverID = ""
		d.sink.NodeHovered("")
	}
}

// Wheel applies zoom-to-cursor: delta is the wheel's Y delta (positive =
// zoom out). Degenerate deltas clamp to a no-op rather than poisoning the
// transform.
func (d *Dispatcher) Wheel(screen r2.Vec, deltaY float64) {
	if !finiteVec(screen) || math.IsNaN(deltaY) {
		return
	}
	// Clamp one event's effect to [0.5x, 1.5x]; an "infinite" delta
	// behaves like a large but bounded notch.
	norm := deltaY / wheelDivisor
	if norm > 0.5 {
		norm = 0.5
	}
	if norm < -0.5 {
		norm = -0.5
	}
	factor := 1.0 - norm
	d.sink.GestureStarted()
	d.viewport.ZoomBy(factor, screen)
	d.sink.ViewportChanged()
}

func (d *Dispatcher) updateHover(screen r2.Vec) {
	id := d.hitAt(screen)
	if id != d.hoverID {
		d.hoverID = id
		d.sink.NodeHovered(id)
	}
}

// hitAt resolves a screen point to a node id using a zoom-compensated
// slop radius, so clicking stays forgiving at any zoom level.
func (d *Dispatcher) hitAt(screen r2.Vec) string {
	if d.hits == nil {
		return ""
	}
	world := d.viewport.ScreenToWorld(screen)
	slop := d.cfg.clickSlop() / math.Max(d.viewport.Zoom, 1e-9)
	return d.hits.Nearest(world, slop)
}

func dist(a, b r2.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func finiteVec(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
