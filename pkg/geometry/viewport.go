// Package geometry implements the world<->screen viewport model.
//
// All transforms flow through a single pair of functions so the
// zoom-to-cursor contract holds everywhere: the world point under the
// cursor stays visually fixed across a zoom, to floating-point tolerance.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Default zoom limits. Mirrors the scale range of canvas graph viewers.
const (
	DefaultZoomMin = 0.2
	DefaultZoomMax = 5.0
)

// Rect is an axis-aligned rectangle in world coordinates.
type Rect struct {
	Min, Max r2.Vec
}

// Contains reports whether p lies inside the rectangle (inclusive).
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Expand grows the rectangle by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{
		Min: r2.Vec{X: r.Min.X - m, Y: r.Min.Y - m},
		Max: r2.Vec{X: r.Max.X + m, Y: r.Max.Y + m},
	}
}

// IntersectsCircle reports whether the circle (c, radius) touches the rect.
func (r Rect) IntersectsCircle(c r2.Vec, radius float64) bool {
	dx := c.X - clamp(c.X, r.Min.X, r.Max.X)
	dy := c.Y - clamp(c.Y, r.Min.Y, r.Max.Y)
	return dx*dx+dy*dy <= radius*radius
}

// Viewport maps world coordinates onto a screen of ScreenW x ScreenH
// pixels: screen = world*Zoom + Pan.
type Viewport struct {
	Pan     r2.Vec // world-to-screen translation, screen units
	Zoom    float64
	ScreenW float64
	ScreenH float64

	ZoomMin float64
	ZoomMax float64

	// WorldBounds optionally clamps panning so the graph extent cannot be
	// panned arbitrarily far off screen. Zero value disables clamping.
	WorldBounds *Rect
}

// NewViewport returns a viewport at zoom 1 with default zoom limits.
func NewViewport(screenW, screenH float64) Viewport {
	return Viewport{
		Zoom:    1.0,
		ScreenW: screenW,
		ScreenH: screenH,
		ZoomMin: DefaultZoomMin,
		ZoomMax: DefaultZoomMax,
	}
}

// ScreenToWorld maps a screen point to world coordinates.
func (v Viewport) ScreenToWorld(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: (p.X - v.Pan.X) / v.Zoom,
		Y: (p.Y - v.Pan.Y) / v.Zoom,
	}
}

// WorldToScreen maps a world point to screen coordinates. Exact inverse of
// ScreenToWorld for the same pan/zoom.
func (v Viewport) WorldToScreen(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: p.X*v.Zoom + v.Pan.X,
		Y: p.Y*v.Zoom + v.Pan.Y,
	}
}

// Center returns the world point currently mapped to screen center.
func (v Viewport) Center() r2.Vec {
	return v.ScreenToWorld(r2.Vec{X: v.ScreenW / 2, Y: v.ScreenH / 2})
}

// WorldRect returns the world rectangle currently visible on screen.
func (v Viewport) WorldRect() Rect {
	a := v.ScreenToWorld(r2.Vec{})
	b := v.ScreenToWorld(r2.Vec{X: v.ScreenW, Y: v.ScreenH})
	return Rect{
		Min: r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// SetZoom applies a new zoom level keeping the world point under anchor
// (a screen point) visually fixed. The zoom-to-cursor contract: the
// anchor's world coordinate is computed before the zoom change, then pan is
// recomputed so that the same world point maps back to the anchor.
// Degenerate input (NaN, Inf) leaves the viewport untouched.
func (v *Viewport) SetZoom(zoom float64, anchor r2.Vec) {
	if !isFinite(zoom) || !isFinite(anchor.X) || !isFinite(anchor.Y) {
		return
	}
	zoom = clamp(zoom, v.zoomMin(), v.zoomMax())
	w := v.ScreenToWorld(anchor)
	v.Zoom = zoom
	v.Pan = r2.Vec{
		X: anchor.X - w.X*zoom,
		Y: anchor.Y - w.Y*zoom,
	}
	v.clampPan()
}

// ZoomBy scales the current zoom by factor around anchor.
func (v *Viewport) ZoomBy(factor float64, anchor r2.Vec) {
	if !isFinite(factor) || factor <= 0 {
		return
	}
	v.SetZoom(v.Zoom*factor, anchor)
}

// PanBy shifts the view by a screen-space delta. Degenerate deltas are
// ignored rather than propagated into the transform.
func (v *Viewport) PanBy(dx, dy float64) {
	if !isFinite(dx) || !isFinite(dy) {
		return
	}
	v.Pan.X += dx
	v.Pan.Y += dy
	v.clampPan()
}

// CenterOn pans (and optionally zooms, when zoom > 0) so that the world
// point w lands on screen center.
func (v *Viewport) CenterOn(w r2.Vec, zoom float64) {
	if !isFinite(w.X) || !isFinite(w.Y) {
		return
	}
	if zoom > 0 && isFinite(zoom) {
		v.Zoom = clamp(zoom, v.zoomMin(), v.zoomMax())
	}
	v.Pan = r2.Vec{
		X: v.ScreenW/2 - w.X*v.Zoom,
		Y: v.ScreenH/2 - w.Y*v.Zoom,
	}
	v.clampPan()
}

// FitBounds frames the world rectangle [min,max] with the given screen
// padding, the way canvas viewers compute their initial view.
func (v *Viewport) FitBounds(min, max r2.Vec, padding float64) {
	gw := max.X - min.X
	if gw <= 0 {
		gw = 1
	}
	gh := max.Y - min.Y
	if gh <= 0 {
		gh = 1
	}
	sx := (v.ScreenW - 2*padding) / gw
	sy := (v.ScreenH - 2*padding) / gh
	s := math.Min(sx, sy)
	if s <= 0 || !isFinite(s) {
		s = 1
	}
	v.Zoom = clamp(s, v.zoomMin(), v.zoomMax())
	v.CenterOn(r2.Vec{X: min.X + gw/2, Y: min.Y + gh/2}, 0)
}

// Valid reports whether the viewport holds finite, usable state.
func (v Viewport) Valid() bool {
	return isFinite(v.Pan.X) && isFinite(v.Pan.Y) &&
		isFinite(v.Zoom) && v.Zoom > 0
}

func (v Viewport) zoomMin() float64 {
	if v.ZoomMin > 0 {
		return v.ZoomMin
	}
	return DefaultZoomMin
}

func (v Viewport) zoomMax() float64 {
	if v.ZoomMax > 0 {
		return v.ZoomMax
	}
	return DefaultZoomMax
}

// clampPan keeps at least part of WorldBounds on screen. Without bounds it
// is a no-op: panning into empty space is valid, it must only never produce
// a non-finite transform.
func (v *Viewport) clampPan() {
	if v.WorldBounds == nil {
		return
	}
	b := *v.WorldBounds
	// Screen-space extent of the world bounds at current zoom.
	minS := v.WorldToScreen(b.Min)
	maxS := v.WorldToScreen(b.Max)

	// Keep the bounds rectangle overlapping the screen.
	if minS.X > v.ScreenW {
		v.Pan.X -= minS.X - v.ScreenW
	}
	if maxS.X < 0 {
		v.Pan.X -= maxS.X
	}
	if minS.Y > v.ScreenH {
		v.Pan.Y -= minS.Y - v.ScreenH
	}
	if maxS.Y < 0 {
		v.Pan.Y -= maxS.Y
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
