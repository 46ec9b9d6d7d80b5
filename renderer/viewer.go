// Package renderer draws the simulation with raylib and turns mouse and
// keyboard input into dog commands.
package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/camera"
	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/game"
	"github.com/pthm-cable/pasture/ui"
)

const (
	terrainTextureSize = 512
	maxStepsPerFrame   = 10
	controlsLegend     = "[1-3] select dog  [click] send  [right-click] deselect  [Space] pause  [,/.] speed  [wheel] zoom  [arrows] pan  [Home] reset  [H] overlays  [F3] perf"
)

var backgroundColor = rl.Color{R: 30, G: 36, B: 28, A: 255}

// Viewer owns the window-side state: camera, renderers and UI panels.
// The window must be open before NewViewer is called.
type Viewer struct {
	game *game.Game

	camera  *camera.Camera
	terrain *TerrainRenderer
	agents  *AgentRenderer

	hud      *ui.HUD
	dogPanel *ui.DogPanel
	perf     *ui.PerfPanel
	controls *ui.ControlsPanel
	overlays *ui.OverlayRegistry

	screenWidth, screenHeight float32
	selected                  int
	stepsPerFrame             int
	showPerf                  bool
}

// NewViewer bakes the terrain texture and builds the UI.
func NewViewer(g *game.Game) *Viewer {
	cfg := g.Config()
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())

	v := &Viewer{
		game:          g,
		camera:        camera.New(w, h, float32(cfg.World.DogHalfExtent)),
		terrain:       NewTerrainRenderer(g.Terrain(), cfg.World.DogHalfExtent, terrainTextureSize),
		agents:        NewAgentRenderer(),
		hud:           ui.NewHUD(),
		dogPanel:      ui.NewDogPanel(int32(w)-250, 10, 240),
		perf:          ui.NewPerfPanel(int32(w)-250, int32(h)-110),
		controls:      ui.NewControlsPanel(10, 140, 220),
		overlays:      ui.NewOverlayRegistry(),
		screenWidth:   w,
		screenHeight:  h,
		selected:      -1,
		stepsPerFrame: 1,
	}

	// Start framed on the pen and the pasture.
	farm, grass := g.Terrain().FarmCenter(), g.Terrain().GrassCenter()
	v.camera.SetZoom(v.camera.MinZoom * 1.6)
	v.camera.Focus(float32(farm.X+grass.X)/2, float32(farm.Z+grass.Z)/2)
	return v
}

// Run drives the window until it closes or maxTicks is reached (0 = no limit).
func (v *Viewer) Run(maxTicks int) {
	dt := v.game.Config().Sim.DT
	for !rl.WindowShouldClose() {
		v.handleInput()

		for i := 0; i < v.stepsPerFrame; i++ {
			v.game.Step(dt)
		}
		v.game.RecordFrame()

		v.draw()

		if maxTicks > 0 && int(v.game.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", v.game.Tick())
			return
		}
	}
}

// Unload frees GPU resources.
func (v *Viewer) Unload() {
	v.terrain.Unload()
}

func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeySpace) {
		v.game.SetPaused(!v.game.Paused())
	}
	if rl.IsKeyPressed(rl.KeyComma) && v.stepsPerFrame > 1 {
		v.stepsPerFrame--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.stepsPerFrame < maxStepsPerFrame {
		v.stepsPerFrame++
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF3) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	v.handleDogSelection()
	v.handleCameraInput()

	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		v.overlays.HandleKeyPress(key)
	}
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h
	v.camera.Resize(w, h)
	v.dogPanel.SetPosition(int32(w)-250, 10)
	v.perf.SetPosition(int32(w)-250, int32(h)-110)
}

// handleDogSelection maps number keys to dogs and clicks to commands.
func (v *Viewer) handleDogSelection() {
	dogKeys := [...]int32{rl.KeyOne, rl.KeyTwo, rl.KeyThree, rl.KeyFour, rl.KeyFive}
	n := len(v.game.Dogs())
	for i, key := range dogKeys {
		if i < n && rl.IsKeyPressed(key) {
			v.selected = i
		}
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		v.selected = -1
	}
	v.agents.SelectedDog = v.selected

	if v.selected < 0 || !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return
	}
	mouse := rl.GetMousePosition()
	if v.controls.Contains(mouse.X, mouse.Y) {
		return
	}
	wx, wz := v.camera.ScreenToWorld(mouse.X, mouse.Y)
	target := r3.Vec{X: float64(wx), Z: float64(wz)}
	if err := v.game.CommandDog(v.selected, target); err != nil {
		slog.Warn("dog command rejected", "dog", v.selected, "error", err)
		return
	}
	slog.Info("dog commanded", "dog", v.selected, "x", target.X, "z", target.Z)
}

func (v *Viewer) handleCameraInput() {
	const panSpeed = 8

	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		mouse := rl.GetMousePosition()
		v.camera.ZoomAt(mouse.X, mouse.Y, 1+wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

func (v *Viewer) draw() {
	g := v.game
	cfg := g.Config()
	summary := g.Summary()
	dogs := g.Dogs()

	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	v.terrain.Draw(v.camera)
	if v.overlays.IsEnabled(ui.OverlaySpatialGrid) {
		drawSpatialGrid(v.camera, cfg.Spatial.CellSize)
	}
	if v.overlays.IsEnabled(ui.OverlayPasture) {
		drawPastureEdge(v.camera, g.Terrain())
	}
	drawWalls(v.camera, g.Boundary(), cfg)
	if v.overlays.IsEnabled(ui.OverlaySectors) {
		drawSectors(v.camera, summary.Centroid, &cfg.Herder)
	}
	if v.overlays.IsEnabled(ui.OverlayFleeRadius) {
		drawFleeRadius(v.camera, dogs, cfg.Flock.FleeRadius)
	}
	if v.overlays.IsEnabled(ui.OverlayDogTargets) {
		drawDogTargets(v.camera, dogs)
	}

	v.agents.Draw(v.camera, g.RenderStates())

	if v.overlays.IsEnabled(ui.OverlayCentroid) {
		drawHerdMarkers(v.camera, summary)
	}
	if v.overlays.IsEnabled(ui.OverlayHeadings) {
		drawHeadings(v.camera, dogs)
	}

	v.hud.Draw(ui.HUDData{
		Title:      "Pasture",
		Tick:       g.Tick(),
		SimTime:    g.Elapsed(),
		Sheep:      summary.Count,
		InPasture:  summary.InPasture,
		Feeding:    summary.Feeding,
		Strays:     len(summary.Strays),
		Speed:      v.stepsPerFrame,
		FPS:        rl.GetFPS(),
		Paused:     g.Paused(),
		SelectedID: v.selected,
	})
	v.dogPanel.Draw(v.dogRows(dogs))
	v.controls.Draw(v.overlays)
	if v.showPerf {
		v.perf.Draw(g.PerfStats())
	}
	v.hud.DrawControls(int32(v.screenHeight), controlsLegend)

	rl.EndDrawing()
}

func (v *Viewer) dogRows(dogs []game.DogView) []ui.DogRow {
	rows := make([]ui.DogRow, 0, len(dogs))
	for _, d := range dogs {
		vel := d.Motion.Vel
		rows = append(rows, ui.DogRow{
			ID:       d.Dog.ID,
			State:    d.Dog.State.String(),
			Mode:     d.Dog.Mode.String(),
			Speed:    r3.Norm(r3.Vec{X: vel.X, Z: vel.Z}),
			Arrived:  d.Dog.Releases[components.ReleaseArrived],
			Expired:  d.Dog.Releases[components.ReleaseExpired],
			Stuck:    d.Dog.Releases[components.ReleaseStuck],
			Selected: d.Dog.ID == v.selected,
		})
	}
	return rows
}
