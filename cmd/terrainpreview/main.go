// Terrain preview tool - interactive biome map with sliders.
//
// Usage: go run ./cmd/terrainpreview [-config path]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pasture/config"
	"github.com/pthm-cable/pasture/renderer"
	"github.com/pthm-cable/pasture/systems"
)

const (
	windowWidth  = 1040
	windowHeight = 900
	previewSize  = 600
	gridSize     = 300
	panelWidth   = windowWidth - previewSize - 40
)

// slider binds one float config field to a labelled slider.
type slider struct {
	label    string
	min, max float32
	format   string
	value    *float64
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	defaults := *config.Cfg()
	cfg := defaults
	halfExtent := cfg.World.DogHalfExtent

	rl.InitWindow(windowWidth, windowHeight, "Terrain Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	img := rl.GenImageColor(gridSize, gridSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var terrain *systems.TerrainField
	seed := float32(cfg.Terrain.Seed % 100000)
	needsRegen := true

	sliders := func() []slider {
		return []slider{
			{"Max height", 10, 120, "%.0f", &cfg.Terrain.MaxHeight},
			{"Base scale", 0.001, 0.02, "%.4f", &cfg.Terrain.BaseScale},
			{"Ridge exponent", 0.5, 3, "%.2f", &cfg.Terrain.RidgeExponent},
			{"Snow height", 10, 100, "%.0f", &cfg.Terrain.SnowHeight},
			{"Alpine height", 5, 80, "%.0f", &cfg.Terrain.AlpineHeight},
			{"Forest moisture", -0.5, 0.5, "%.2f", &cfg.Terrain.ForestMoisture},
			{"Grass radius", 30, 150, "%.0f", &cfg.Grass.NominalRadius},
			{"Radius noise", 0, 60, "%.0f", &cfg.Grass.RadiusNoise},
		}
	}

	for !rl.WindowShouldClose() {
		if needsRegen {
			terrain = systems.NewTerrainField(&cfg)
			rl.UpdateTexture(texture, renderer.BakeTerrain(terrain, halfExtent, gridSize))
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: gridSize, Height: gridSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		// Biome under the cursor
		mouse := rl.GetMousePosition()
		if mouse.X >= 10 && mouse.X < 10+previewSize && mouse.Y >= 10 && mouse.Y < 10+previewSize {
			x := (float64(mouse.X-10)/previewSize*2 - 1) * halfExtent
			z := (float64(mouse.Y-10)/previewSize*2 - 1) * halfExtent
			h := terrain.Height(x, z)
			rl.DrawText(fmt.Sprintf("(%.0f, %.0f)  height %.1f  %s", x, z, h, terrain.Biome(x, z, h)), 15, previewSize+25, 16, rl.DarkGray)
		}
		drawLegend(15, previewSize+50)

		// Control panel
		panelX := float32(previewSize + 30)
		panelY := float32(10)
		rl.DrawText("Terrain Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		for _, s := range sliders() {
			rl.DrawText(s.label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "",
				float32(*s.value), s.min, s.max,
			)
			rl.DrawText(fmt.Sprintf(s.format, *s.value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if v != float32(*s.value) {
				*s.value = float64(v)
				needsRegen = true
			}
			panelY += 32
		}

		rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newSeed := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"", "",
			seed, 0, 99999,
		)
		rl.DrawText(fmt.Sprintf("%d", cfg.Terrain.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if int64(newSeed) != int64(seed) {
			seed = newSeed
			cfg.Terrain.Seed = int64(seed)
			needsRegen = true
		}
		panelY += 40

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			seed = float32(rl.GetRandomValue(0, 99999))
			cfg.Terrain.Seed = int64(seed)
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			cfg = defaults
			seed = float32(cfg.Terrain.Seed % 100000)
			needsRegen = true
		}
		panelY += 45

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		snippet := yamlSnippet(&cfg)
		for _, line := range strings.Split(snippet, "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 10, rl.Gray)
			panelY += 12
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(snippet)
		}

		rl.EndDrawing()
	}
}

// yamlSnippet renders the tunable sections as a config fragment.
func yamlSnippet(cfg *config.Config) string {
	out, err := yaml.Marshal(struct {
		Terrain config.TerrainConfig `yaml:"terrain"`
		Grass   config.GrassConfig   `yaml:"grass"`
	}{cfg.Terrain, cfg.Grass})
	if err != nil {
		return err.Error()
	}
	return strings.TrimRight(string(out), "\n")
}

func drawLegend(x, y int32) {
	biomes := []systems.Biome{
		systems.BiomeLushGrass, systems.BiomePlains, systems.BiomePath, systems.BiomeFarmDirt,
		systems.BiomeSnowForest, systems.BiomeSnowPlains, systems.BiomeSnow,
	}
	for i, b := range biomes {
		bx := x + int32(i%4)*150
		by := y + int32(i/4)*20
		rl.DrawRectangle(bx, by, 14, 14, renderer.BiomeColor(b))
		rl.DrawText(b.String(), bx+20, by, 14, rl.DarkGray)
	}
}
