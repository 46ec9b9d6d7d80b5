package telemetry

import (
	"testing"

	"github.com/pthm-cable/pasture/config"
)

func init() {
	config.MustInit("")
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_HerdPastured(t *testing.T) {
	bd := NewBookmarkDetector(10, config.Cfg().Herder.SettledFraction)

	fractions := []struct {
		inPasture int
		want      bool
	}{
		{10, false},
		{40, false},
		{70, true},
		{90, false}, // already reported
		{20, false}, // re-arms below half the threshold
		{80, true},
	}
	for i, f := range fractions {
		stats := WindowStats{
			WindowEndTick:   int32(i * 600),
			Sheep:           100,
			InPasture:       f.inPasture,
			PastureFraction: float64(f.inPasture) / 100,
		}
		if got := hasBookmark(bd.Check(stats), BookmarkHerdPastured); got != f.want {
			t.Errorf("window %d (%d in pasture): herd_pastured = %v, want %v", i, f.inPasture, got, f.want)
		}
	}
}

func TestBookmarkDetector_HerdScattered(t *testing.T) {
	bd := NewBookmarkDetector(10, 0.6)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), Sheep: 100, Spread: 10})
	}

	calm := WindowStats{WindowEndTick: 3000, Sheep: 100, Spread: 25, Strays: 1}
	if hasBookmark(bd.Check(calm), BookmarkHerdScattered) {
		t.Error("herd_scattered fired with fewer than 3 strays")
	}

	scattered := WindowStats{WindowEndTick: 3600, Sheep: 100, Spread: 40, Strays: 3}
	if !hasBookmark(bd.Check(scattered), BookmarkHerdScattered) {
		t.Error("expected herd_scattered bookmark")
	}
}

func TestBookmarkDetector_DogsStuck(t *testing.T) {
	bd := NewBookmarkDetector(10, 0.6)
	if hasBookmark(bd.Check(WindowStats{ReleasesStuck: 2}), BookmarkDogsStuck) {
		t.Error("dogs_stuck fired for 2 stuck releases")
	}
	if !hasBookmark(bd.Check(WindowStats{ReleasesStuck: 3}), BookmarkDogsStuck) {
		t.Error("expected dogs_stuck bookmark")
	}
}

func TestBookmarkDetector_HerdSettled(t *testing.T) {
	bd := NewBookmarkDetector(10, 0.6)

	fired := 0
	for i := 0; i < 10; i++ {
		stats := WindowStats{
			WindowEndTick:   int32(i * 600),
			Sheep:           100,
			InPasture:       90,
			PastureFraction: 0.9,
			Feeding:         60,
		}
		if hasBookmark(bd.Check(stats), BookmarkHerdSettled) {
			fired++
			if i != 4 {
				t.Errorf("herd_settled fired at window %d, want 4", i)
			}
		}
	}
	if fired != 1 {
		t.Errorf("herd_settled fired %d times, want 1", fired)
	}
}
