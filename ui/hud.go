package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pasture/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Tick       int32
	SimTime    float64
	Sheep      int
	InPasture  int
	Feeding    int
	Strays     int
	Speed      int
	FPS        int32
	Paused     bool
	SelectedID int // -1 when no dog is selected
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Sheep: %d | In pasture: %d | Feeding: %d | Strays: %d", data.Sheep, data.InPasture, data.Feeding, data.Strays),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Time: %.1fs | Speed: %dx | FPS: %d", data.Tick, data.SimTime, data.Speed, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	status := "Running"
	if data.Paused {
		status = "PAUSED"
	}
	if data.SelectedID >= 0 {
		status += fmt.Sprintf(" | Dog %d selected, click to send", data.SelectedID+1)
	}
	rl.DrawText(status, 10, 75, 16, rl.Yellow)

	if data.Sheep > 0 {
		y := h.renderer.DrawRatioBar(10, 95, "Pastured", float32(data.InPasture)/float32(data.Sheep), 260)
		h.renderer.DrawBar(10, y, "Feeding", float32(data.Feeding)/float32(data.Sheep), 260)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// DogRow is one line of the dog panel.
type DogRow struct {
	ID       int
	State    string
	Mode     string
	Speed    float64
	Arrived  int
	Expired  int
	Stuck    int
	Selected bool
}

// DogPanel lists the dogs and their command state.
type DogPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewDogPanel creates a new dog panel.
func NewDogPanel(x, y, width int32) *DogPanel {
	return &DogPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (p *DogPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders one row per dog.
func (p *DogPanel) Draw(rows []DogRow) {
	r := p.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	height := padding*2 + lineHeight + int32(len(rows))*lineHeight*2
	r.DrawPanel(p.x, p.y, p.width, height)

	y := r.DrawSectionHeader(p.x+padding, p.y+padding, "Dogs")
	for _, row := range rows {
		c := r.Theme.LabelColor
		if row.Selected {
			c = r.Theme.Selected
		}
		rl.DrawText(fmt.Sprintf("[%d] %s %s  %.1f m/s", row.ID+1, row.State, row.Mode, row.Speed), p.x+padding, y, r.Theme.FontSize, c)
		y += lineHeight
		rl.DrawText(fmt.Sprintf("    arrived %d  expired %d  stuck %d", row.Arrived, row.Expired, row.Stuck), p.x+padding, y, r.Theme.FontSize, rl.Gray)
		y += lineHeight
	}
}

// PerfPanel renders per-phase tick timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Tick Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s", stats.AvgTickDuration.Round(time.Microsecond), stats.MaxTickDuration.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for i, avg := range stats.PhaseAvg {
		pct := stats.PhasePct[i]
		color := rl.LightGray
		if pct > 60 {
			color = rl.Red
		} else if pct > 30 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", telemetry.Phase(i), avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
