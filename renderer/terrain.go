package renderer

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pasture/camera"
	"github.com/pthm-cable/pasture/systems"
)

// biomePalette is the base colour of each biome before shading.
var biomePalette = map[systems.Biome]color.RGBA{
	systems.BiomeSnow:       {R: 236, G: 240, B: 246, A: 255},
	systems.BiomePath:       {R: 150, G: 124, B: 88, A: 255},
	systems.BiomeLushGrass:  {R: 92, G: 156, B: 64, A: 255},
	systems.BiomeFarmDirt:   {R: 122, G: 96, B: 66, A: 255},
	systems.BiomeSnowForest: {R: 58, G: 84, B: 70, A: 255},
	systems.BiomePlains:     {R: 152, G: 164, B: 104, A: 255},
	systems.BiomeSnowPlains: {R: 204, G: 212, B: 206, A: 255},
}

// BiomeColor returns the unshaded palette colour for b.
func BiomeColor(b systems.Biome) color.RGBA {
	if c, ok := biomePalette[b]; ok {
		return c
	}
	return color.RGBA{R: 255, G: 0, B: 255, A: 255}
}

// BakeTerrain samples the terrain on a size×size grid covering
// [-halfExtent, halfExtent] and returns row-major pixels (rows run along +Z).
// Colours are the biome palette darkened by height and hillshaded from the
// north-west.
func BakeTerrain(terrain *systems.TerrainField, halfExtent float64, size int) []color.RGBA {
	step := 2 * halfExtent / float64(size)
	maxHeight := terrain.MaxHeight()
	pixels := make([]color.RGBA, size*size)
	for row := 0; row < size; row++ {
		z := -halfExtent + (float64(row)+0.5)*step
		for col := 0; col < size; col++ {
			x := -halfExtent + (float64(col)+0.5)*step
			h := terrain.Height(x, z)
			gx, gz := terrain.Gradient(x, z)
			// Light from -X,-Z; slopes facing it brighten.
			shade := 1 - 0.6*(gx+gz)/math.Sqrt(1+gx*gx+gz*gz)
			if maxHeight > 0 {
				shade *= 0.8 + 0.2*h/maxHeight
			}
			pixels[row*size+col] = shadeColor(BiomeColor(terrain.Biome(x, z, h)), shade)
		}
	}
	return pixels
}

func shadeColor(c color.RGBA, f float64) color.RGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Max(0, float64(v)*f)))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// TerrainRenderer draws the baked terrain texture.
type TerrainRenderer struct {
	texture    rl.Texture2D
	size       int
	halfExtent float32
	loaded     bool
}

// NewTerrainRenderer bakes terrain into a size×size texture. Must be called
// after the raylib window is created.
func NewTerrainRenderer(terrain *systems.TerrainField, halfExtent float64, size int) *TerrainRenderer {
	img := rl.GenImageColor(size, size, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.UpdateTexture(tex, BakeTerrain(terrain, halfExtent, size))
	rl.SetTextureFilter(tex, rl.FilterBilinear)

	return &TerrainRenderer{
		texture:    tex,
		size:       size,
		halfExtent: float32(halfExtent),
		loaded:     true,
	}
}

// Draw renders the terrain through the camera.
func (r *TerrainRenderer) Draw(cam *camera.Camera) {
	x0, y0 := cam.WorldToScreen(-r.halfExtent, -r.halfExtent)
	x1, y1 := cam.WorldToScreen(r.halfExtent, r.halfExtent)
	rl.DrawTexturePro(
		r.texture,
		rl.Rectangle{X: 0, Y: 0, Width: float32(r.size), Height: float32(r.size)},
		rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0},
		rl.Vector2{},
		0,
		rl.White,
	)
}

// Unload frees resources.
func (r *TerrainRenderer) Unload() {
	if r.loaded {
		rl.UnloadTexture(r.texture)
		r.loaded = false
	}
}
