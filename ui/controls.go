package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const checkSize = 12

// ControlsPanel lists overlays by category as clickable check boxes.
type ControlsPanel struct {
	renderer *Renderer
	bounds   rl.Rectangle
	visible  bool
}

// NewControlsPanel creates a hidden panel at (x, y).
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		bounds:   rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(width)},
	}
}

// SetPosition moves the panel.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.bounds.X, c.bounds.Y = float32(x), float32(y)
}

// Toggle shows or hides the panel.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the visible panel, so
// clicks there are not treated as world clicks.
func (c *ControlsPanel) Contains(x, y float32) bool {
	return c.visible && rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, c.bounds)
}

// Draw renders the panel, applies any check box clicks to overlays and
// returns the Y below it.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	top := int32(c.bounds.Y)
	if !c.visible {
		return top
	}

	th := c.renderer.Theme
	cats := overlays.Categories()
	rows := len(cats)
	for _, cat := range cats {
		rows += len(overlays.ByCategory(cat))
	}
	c.bounds.Height = float32(int32(rows+1)*th.LineHeight + 3*th.Padding)
	c.renderer.DrawPanel(int32(c.bounds.X), top, int32(c.bounds.Width), int32(c.bounds.Height))

	x := int32(c.bounds.X) + th.Padding
	y := c.renderer.DrawSectionHeader(x, top+th.Padding, "Overlays [H]")
	for _, cat := range cats {
		rl.DrawText(title(cat), x, y, th.FontSize, th.LabelColor)
		y += th.LineHeight
		for _, desc := range overlays.ByCategory(cat) {
			box := rl.Rectangle{X: float32(x + 8), Y: float32(y), Width: checkSize, Height: checkSize}
			on := overlays.IsEnabled(desc.ID)
			if gui.CheckBox(box, desc.Name+"  ["+desc.KeyLabel+"]", on) != on {
				overlays.Set(desc.ID, !on)
			}
			y += th.LineHeight
		}
	}
	return y + th.Padding
}

func title(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
