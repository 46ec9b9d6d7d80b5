// Package camera provides a top-down camera over the world's XZ plane.
package camera

// Camera controls the viewport into the simulation world.
// Screen X follows world X; screen Y follows world Z.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Z float32

	// Zoom level in screen pixels per world metre
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World extent: [-HalfExtent, HalfExtent] on both axes
	HalfExtent float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the world origin, zoomed to fit the
// whole world in the viewport.
func New(viewportW, viewportH, halfExtent float32) *Camera {
	c := &Camera{
		ViewportW:  viewportW,
		ViewportH:  viewportH,
		HalfExtent: halfExtent,
		MaxZoom:    12,
	}
	c.MinZoom = c.fitZoom()
	c.Zoom = c.MinZoom
	return c
}

// fitZoom is the zoom at which the whole world just fits the viewport.
func (c *Camera) fitZoom() float32 {
	size := 2 * c.HalfExtent
	return min(c.ViewportW/size, c.ViewportH/size)
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wz float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wz-c.Z)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wz float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wz = c.Z + (sy-c.ViewportH/2)/c.Zoom
	return wx, wz
}

// IsVisible returns true if a circle at (wx, wz) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wz, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wz-c.Z) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = c.fitZoom()
	c.SetZoom(c.Zoom)
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += dx / c.Zoom
	c.Z += dy / c.Zoom
	c.clampCenter()
}

// Focus centers the camera on a world point.
func (c *Camera) Focus(wx, wz float32) {
	c.X, c.Z = wx, wz
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor while keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wz := c.ScreenToWorld(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	c.X = wx - (sx-c.ViewportW/2)/c.Zoom
	c.Z = wz - (sy-c.ViewportH/2)/c.Zoom
	c.clampCenter()
}

// Reset returns the camera to the origin at the fitted zoom.
func (c *Camera) Reset() {
	c.X, c.Z = 0, 0
	c.Zoom = c.MinZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minZ, maxX, maxZ float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Z - halfH, c.X + halfW, c.Z + halfH
}

// clampCenter keeps the view inside the world. On an axis where the view is
// wider than the world the camera centers on the origin.
func (c *Camera) clampCenter() {
	c.X = clampAxis(c.X, c.ViewportW/(2*c.Zoom), c.HalfExtent)
	c.Z = clampAxis(c.Z, c.ViewportH/(2*c.Zoom), c.HalfExtent)
}

func clampAxis(center, halfView, halfExtent float32) float32 {
	limit := halfExtent - halfView
	if limit <= 0 {
		return 0
	}
	return clamp(center, -limit, limit)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
