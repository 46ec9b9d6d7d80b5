package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNew(t *testing.T) {
	cam := New(1280, 800, 320)

	if cam.X != 0 || cam.Z != 0 {
		t.Errorf("expected camera at origin, got (%f, %f)", cam.X, cam.Z)
	}
	// min(1280/640, 800/640) = 1.25
	if !near(cam.Zoom, 1.25) || !near(cam.MinZoom, 1.25) {
		t.Errorf("expected fitted zoom 1.25, got zoom %f min %f", cam.Zoom, cam.MinZoom)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 800, 320)

	sx, sy := cam.WorldToScreen(0, 0)
	if !near(sx, 640) || !near(sy, 400) {
		t.Errorf("expected screen center (640, 400), got (%f, %f)", sx, sy)
	}

	// +X is right, +Z is down the screen.
	sx, sy = cam.WorldToScreen(100, 100)
	if sx <= 640 || sy <= 400 {
		t.Errorf("expected (100, 100) right of and below center, got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.SetZoom(3)
	cam.Focus(-150, 40)

	testCases := []struct{ sx, sy float32 }{
		{640, 400},
		{100, 100},
		{1200, 700},
	}

	for _, tc := range testCases {
		wx, wz := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wz)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wz, sx, sy)
		}
	}
}

func TestPanStopsAtWorldEdge(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.SetZoom(4)

	cam.Pan(-100000, 0)

	// Visible half width is 1280/8 = 160, so the center stops at -320+160.
	if !near(cam.X, -160) {
		t.Errorf("expected X clamped to -160, got %f", cam.X)
	}
	minX, _, _, _ := cam.VisibleWorldBounds()
	if minX < -320-0.01 {
		t.Errorf("view extends past the world edge: minX %f", minX)
	}
}

func TestFitAxisStaysCentered(t *testing.T) {
	cam := New(1280, 800, 320)

	// At the fitted zoom the X view is wider than the world.
	cam.Pan(500, 0)
	if cam.X != 0 {
		t.Errorf("expected X pinned to 0 when the view is wider than the world, got %f", cam.X)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 800, 320)

	cam.SetZoom(0.1)
	if !near(cam.Zoom, cam.MinZoom) {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}
}

func TestZoomAtKeepsCursorPoint(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.SetZoom(2)

	beforeX, beforeZ := cam.ScreenToWorld(800, 500)
	cam.ZoomAt(800, 500, 1.5)
	afterX, afterZ := cam.ScreenToWorld(800, 500)

	if !near(beforeX, afterX) || !near(beforeZ, afterZ) {
		t.Errorf("point under cursor moved from (%f,%f) to (%f,%f)", beforeX, beforeZ, afterX, afterZ)
	}
}

func TestResizeRefits(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.Resize(640, 640)

	if !near(cam.MinZoom, 1) {
		t.Errorf("expected MinZoom 1 after resize, got %f", cam.MinZoom)
	}
	if cam.Zoom < cam.MinZoom {
		t.Errorf("zoom %f below new minimum %f", cam.Zoom, cam.MinZoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.SetZoom(4)
	// Visible range is [-160, 160] x [-100, 100].

	if !cam.IsVisible(0, 0, 1) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(250, 150, 1) {
		t.Error("far point should not be visible")
	}
	if !cam.IsVisible(170, 0, 20) {
		t.Error("edge point with large radius should be visible")
	}
}

func TestReset(t *testing.T) {
	cam := New(1280, 800, 320)
	cam.SetZoom(5)
	cam.Focus(100, -50)

	cam.Reset()

	if cam.X != 0 || cam.Z != 0 {
		t.Errorf("expected origin, got (%f, %f)", cam.X, cam.Z)
	}
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom %f, got %f", cam.MinZoom, cam.Zoom)
	}
}
