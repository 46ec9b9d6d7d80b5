package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHerdPastured  BookmarkType = "herd_pastured"
	BookmarkHerdScattered BookmarkType = "herd_scattered"
	BookmarkDogsStuck     BookmarkType = "dogs_stuck"
	BookmarkHerdSettled   BookmarkType = "herd_settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector flags notable moments in the herding run.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	pasturedFraction float64
	pastured         bool
	settledWindows   int
}

// NewBookmarkDetector creates a detector with the given history size.
// pasturedFraction is the share of the herd in the pasture that counts as
// having arrived.
func NewBookmarkDetector(historySize int, pasturedFraction float64) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:          make([]WindowStats, historySize),
		historySize:      historySize,
		pasturedFraction: pasturedFraction,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkPastured(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkScattered(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDogsStuck(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkPastured fires each time the pasture fraction rises through the
// threshold. It re-arms once the fraction drops below half the threshold.
func (bd *BookmarkDetector) checkPastured(stats WindowStats) *Bookmark {
	if bd.pastured {
		if stats.PastureFraction < bd.pasturedFraction/2 {
			bd.pastured = false
		}
		return nil
	}
	if stats.Sheep == 0 || stats.PastureFraction < bd.pasturedFraction {
		return nil
	}
	bd.pastured = true
	return &Bookmark{
		Type:        BookmarkHerdPastured,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d of %d sheep in the pasture after %.0fs", stats.InPasture, stats.Sheep, stats.SimTimeSec),
	}
}

func (bd *BookmarkDetector) checkScattered(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.Spread
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.Spread > avg*2.0 && stats.Strays >= 3 {
		return &Bookmark{
			Type:        BookmarkHerdScattered,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Spread %.1f is %.1fx average (%.1f)", stats.Spread, stats.Spread/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkDogsStuck(stats WindowStats) *Bookmark {
	if stats.ReleasesStuck < 3 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkDogsStuck,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d commands abandoned as stuck", stats.ReleasesStuck),
	}
}

// checkSettled fires once after five consecutive windows with most of the
// herd feeding in the pasture.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Sheep == 0 || stats.PastureFraction < bd.pasturedFraction || stats.Feeding*2 < stats.InPasture {
		bd.settledWindows = 0
		return nil
	}
	bd.settledWindows++
	if bd.settledWindows == 5 {
		return &Bookmark{
			Type:        BookmarkHerdSettled,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herd settled with %d of %d sheep feeding", stats.Feeding, stats.Sheep),
		}
	}
	return nil
}
