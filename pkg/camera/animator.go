// Package camera drives interruptible viewport transitions: centering on a
// selection, reset-to-default, and any other programmatic camera move.
//
// The animator is frame-driven and owns no timers. Each Step(now) call
// writes one interpolated viewport; when the duration elapses the viewport
// snaps exactly to the target. Starting a new animation bumps a generation
// counter which immediately invalidates the one in flight, so two
// animations can never race on the viewport.
package camera

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/trackmap/pkg/geometry"
)

// DefaultDuration is the transition length used when the caller passes 0.
const DefaultDuration = 400 * time.Millisecond

// EasingFunc maps normalized time [0,1] to normalized progress [0,1].
type EasingFunc func(t float64) float64

// EaseInOutCubic is the default easing: slow start, fast middle, soft landing.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 1 + u*u*u/2
}

// Linear easing, used by tests that want exact midpoints.
func Linear(t float64) float64 { return t }

type animation struct {
	from       geometry.Viewport
	to         geometry.Viewport
	start      time.Time
	duration   time.Duration
	ease       EasingFunc
	generation uint64
}

// Animator holds at most one in-flight viewport transition.
type Animator struct {
	active     *animation
	generation uint64
	duration   time.Duration
	ease       EasingFunc
}

// New returns an animator with the given defaults. Zero duration selects
// DefaultDuration; nil easing selects EaseInOutCubic.
func New(duration time.Duration, ease EasingFunc) *Animator {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if ease == nil {
		ease = EaseInOutCubic
	}
	return &Animator{duration: duration, ease: ease}
}

// Animating reports whether a transition is in flight.
func (a *Animator) Animating() bool { return a.active != nil }

// Generation returns the current animation generation. Each start or
// cancel bumps it; a frame driver can use it to detect supersession.
func (a *Animator) Generation() uint64 { return a.generation }

// CenterOn starts a transition that places the world point at screen
// center, optionally changing zoom (targetZoom > 0). Any in-flight
// animation is cancelled and replaced; its target is discarded, not queued.
func (a *Animator) CenterOn(v geometry.Viewport, target r2.Vec, targetZoom float64, now time.Time) {
	to := v
	to.CenterOn(target, targetZoom)
	a.start(v, to, now)
}

// AnimateTo starts a transition to an explicit viewport target.
func (a *Animator) AnimateTo(v geometry.Viewport, to geometry.Viewport, now time.Time) {
	a.start(v, to, now)
}

func (a *Animator) start(from, to geometry.Viewport, now time.Time) {
	a.generation++
	a.active = &animation{
		from:       from,
		to:         to,
		start:      now,
		duration:   a.duration,
		ease:       a.ease,
		generation: a.generation,
	}
}

// Cancel discards the in-flight animation, leaving the viewport wherever
// the last Step put it. User input routes through here so a drag or wheel
// never fights a programmatic move.
func (a *Animator) Cancel() {
	if a.active != nil {
		a.generation++
		a.active = nil
	}
}

// Step advances the animation to the given time and returns the viewport
// to apply this frame. done is true on the frame the animation completes,
// at which point the returned viewport equals the target exactly.
// With no active animation, Step returns (v, false, false).
func (a *Animator) Step(v geometry.Viewport, now time.Time) (out geometry.Viewport, applied, done bool) {
	anim := a.active
	if anim == nil {
		return v, false, false
	}
	// Cooperative cancellation: a stale generation means this animation
	// was superseded between frames.
	if anim.generation != a.generation {
		a.active = nil
		return v, false, false
	}

	elapsed := now.Sub(anim.start)
	if elapsed >= anim.duration {
		a.active = nil
		return anim.to, true, true
	}
	t := float64(elapsed) / float64(anim.duration)
	if t < 0 {
		t = 0
	}
	p := anim.ease(t)

	out = v
	out.Pan = r2.Vec{
		X: lerp(anim.from.Pan.X, anim.to.Pan.X, p),
		Y: lerp(anim.from.Pan.Y, anim.to.Pan.Y, p),
	}
	out.Zoom = lerp(anim.from.Zoom, anim.to.Zoom, p)
	return out, true, false
}

// Target returns the destination viewport of the in-flight animation.
func (a *Animator) Target() (geometry.Viewport, bool) {
	if a.active == nil {
		return geometry.Viewport{}, false
	}
	return a.active.to, true
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
