package usecase

import (
	"fmt"
	"io"
	"sync"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/util"
)

// ProgressObserver receives run snapshots while a series is retrieved.
type ProgressObserver interface {
	Update(run models.RetrievalRun)
	Finish(run models.RetrievalRun)
}

// ProgressBoard keeps the latest snapshot per asset for the status server.
type ProgressBoard struct {
	mu   sync.RWMutex
	runs map[models.AssetType]models.RetrievalRun
}

func NewProgressBoard() *ProgressBoard {
	return &ProgressBoard{runs: make(map[models.AssetType]models.RetrievalRun)}
}

func (b *ProgressBoard) Update(run models.RetrievalRun) {
	b.mu.Lock()
	b.runs[run.AssetType] = run
	b.mu.Unlock()
}

func (b *ProgressBoard) Finish(run models.RetrievalRun) { b.Update(run) }

func (b *ProgressBoard) Get(asset models.AssetType) (models.RetrievalRun, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	run, ok := b.runs[asset]
	return run, ok
}

// Snapshot returns the known runs in sweep order.
func (b *ProgressBoard) Snapshot() []models.RetrievalRun {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.RetrievalRun, 0, len(b.runs))
	for _, asset := range models.AllAssetTypes {
		if run, ok := b.runs[asset]; ok {
			out = append(out, run)
		}
	}
	return out
}

const clearPreviousLine = "\x1b[1A\x1b[K"

// ConsoleProgress rewrites one terminal line per asset as days complete.
type ConsoleProgress struct {
	mu      sync.Mutex
	w       io.Writer
	current models.AssetType
}

func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	return &ConsoleProgress{w: w}
}

func (c *ConsoleProgress) Update(run models.RetrievalRun) {
	if run.Current.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == run.AssetType {
		fmt.Fprint(c.w, clearPreviousLine)
	}
	c.current = run.AssetType
	fmt.Fprintf(c.w, "Retrieving %s files for %s: downloaded=%d, updated=%d, skipped=%d\n",
		run.AssetType, util.FormatDay(run.Current), run.Downloaded, run.Updated, run.Skipped+run.MarkedEmpty)
}

func (c *ConsoleProgress) Finish(run models.RetrievalRun) {
	c.Update(run)
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}
