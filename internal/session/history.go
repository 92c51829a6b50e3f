package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/observe"
	"github.com/felixgeelhaar/glance/internal/store"
)

// Recorder writes every search session to the history store. Rows are keyed by
// the client-generated id the session started with, so a server-assigned
// search_id does not split the history. Only the newest unfinished search is
// tracked in memory.
type Recorder struct {
	mu    sync.Mutex
	store store.Storage
	obs   *observe.Observer
	rows  map[uint64]*store.Search
}

// Record subscribes a Recorder to bus.
func Record(bus *EventBus, s store.Storage, obs *observe.Observer) *Recorder {
	if obs == nil {
		obs = observe.Discard()
	}
	r := &Recorder{store: s, obs: obs, rows: make(map[uint64]*store.Search)}
	bus.Subscribe(EventSearchStarted, r.started)
	bus.Subscribe(EventPageMerged, r.merged)
	bus.Subscribe(EventSearchFailed, r.failed)
	return r
}

func (r *Recorder) started(e Event) {
	kind, _ := e.Data["kind"].(string)
	query, _ := e.Data["query"].(string)
	filters, _ := e.Data["filters"].(string)

	row := &store.Search{
		ID:        e.SessionID,
		Kind:      kind,
		Query:     query,
		Filters:   filters,
		Status:    store.StatusRunning,
		CreatedAt: e.Timestamp,
	}
	if img, ok := e.Data["image"].(*catalog.Image); ok && img != nil {
		row.Query = img.Name
	}

	if err := r.store.CreateSearch(row); err != nil {
		r.obs.Log().Warn().Str("search_id", e.SessionID).Err(err).Msg("failed to record search")
		return
	}

	r.mu.Lock()
	for gen := range r.rows {
		if gen < e.Generation {
			delete(r.rows, gen)
		}
	}
	r.rows[e.Generation] = row
	r.mu.Unlock()

	if img, ok := e.Data["image"].(*catalog.Image); ok && img != nil {
		r.saveImage(row.ID, img)
	}
}

func (r *Recorder) merged(e Event) {
	total, _ := e.Data["total"].(int)
	exhausted, _ := e.Data["exhausted"].(bool)
	status := store.StatusRunning
	if exhausted {
		status = store.StatusCompleted
	}
	r.update(e.Generation, status, total, exhausted)
}

// failed marks the row failed. A failed first page ends the search; a failed
// later page can still be retried with LoadMore.
func (r *Recorder) failed(e Event) {
	offset, _ := e.Data["offset"].(int)
	r.update(e.Generation, store.StatusFailed, -1, offset == 0)
}

// update sets the row status; total < 0 keeps the stored count. A done row is
// dropped from memory after the write.
func (r *Recorder) update(gen uint64, status string, total int, done bool) {
	r.mu.Lock()
	row, ok := r.rows[gen]
	if !ok {
		r.mu.Unlock()
		return
	}
	row.Status = status
	if total >= 0 {
		row.ResultCount = total
	}
	snapshot := *row
	if done {
		delete(r.rows, gen)
	}
	r.mu.Unlock()

	if err := r.store.UpdateSearch(&snapshot); err != nil {
		r.obs.Log().Warn().Str("search_id", snapshot.ID).Err(err).Msg("failed to update search history")
	}
}

func (r *Recorder) saveImage(searchID string, img *catalog.Image) {
	sum := sha256.Sum256(img.Data)
	digest := hex.EncodeToString(sum[:])
	art := &store.Artifact{
		ID:        "img-" + uuid.NewString(),
		SearchID:  searchID,
		Path:      path.Join(searchID, fmt.Sprintf("query_%s%s", digest[:12], extOf(img.Name))),
		Type:      "query_image",
		CreatedAt: time.Now(),
		Digest:    digest,
	}
	if err := r.store.SaveArtifact(art, img.Data); err != nil {
		r.obs.Log().Warn().Str("search_id", searchID).Err(err).Msg("failed to keep query image")
	}
}

func extOf(name string) string {
	if ext := path.Ext(name); ext != "" {
		return ext
	}
	return ".jpg"
}
