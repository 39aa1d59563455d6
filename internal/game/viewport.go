package game

import (
	"sync"
)

var DefaultGeometry = Geometry{
	Width:        360,
	Height:       240,
	MarkerWidth:  48,
	MarkerHeight: 48,
}

type GeometrySource interface {
	Geometry() Geometry
}

// Viewport holds the latest geometry reported by the rendering surface.
type Viewport struct {
	mu       sync.RWMutex
	geometry Geometry
}

func NewViewport(g Geometry) *Viewport {
	if !g.valid() {
		g = DefaultGeometry
	}
	return &Viewport{geometry: g}
}

func (v *Viewport) Geometry() Geometry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.geometry
}

// Resize stores g if it describes a drawable area.
func (v *Viewport) Resize(g Geometry) bool {
	if !g.valid() {
		return false
	}
	v.mu.Lock()
	v.geometry = g
	v.mu.Unlock()
	return true
}

func (g Geometry) valid() bool {
	return g.Width > 0 && g.Height > 0 && g.MarkerWidth >= 0 && g.MarkerHeight >= 0
}
