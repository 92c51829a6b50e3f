// Package session implements the incremental search session: starting text
// and image searches, paginating the active search, merging pages, carrying
// client-side filters, and fetching product detail with similar items.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/guard"
	"github.com/felixgeelhaar/glance/internal/observe"
	"github.com/felixgeelhaar/glance/internal/searchapi"
)

// ErrStale is returned when a response arrives after a newer search has
// replaced the session that issued it. The response is discarded.
var ErrStale = errors.New("response superseded by a newer search")

// Searcher is the remote API used by a Session.
type Searcher interface {
	Search(ctx context.Context, req searchapi.SearchRequest) (*searchapi.Page, error)
	Detail(ctx context.Context, hash string) ([]catalog.Product, error)
	Similar(ctx context.Context, hash string) ([]catalog.Product, error)
}

// QueryKind is the modality of the pending search.
type QueryKind int

const (
	QueryNone QueryKind = iota
	QueryText
	QueryImage
)

func (k QueryKind) String() string {
	switch k {
	case QueryText:
		return "text"
	case QueryImage:
		return "image"
	default:
		return "none"
	}
}

// Query remembers which modality to use when paginating or re-applying filters.
type Query struct {
	Kind  QueryKind
	Text  string
	Image *catalog.Image
}

// Detail is a product with its similar items.
type Detail struct {
	Product *catalog.Product
	Similar []catalog.Product
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ID         string
	Generation uint64
	Results    []catalog.Product
	Filters    catalog.Filters
	Pending    Query
	Loading    bool
	Exhausted  bool
	LastError  string
}

// Options configure a Session.
type Options struct {
	PageSize int
	Guard    *guard.Guard
	Observer *observe.Observer
	Bus      *EventBus
	NewID    func() string
}

// Session owns all mutable search state. It is safe for concurrent use; the
// network call of every operation runs outside the lock.
type Session struct {
	mu sync.Mutex

	api      Searcher
	guard    *guard.Guard
	obs      *observe.Observer
	bus      *EventBus
	newID    func() string
	pageSize int

	id          string
	generation  uint64
	accumulated []catalog.Product
	visible     []catalog.Product
	filters     catalog.Filters
	pending     Query
	inFlight    bool
	exhausted   bool
	loading     int
	lastError   string

	details singleflight.Group
}

func New(api Searcher, opts Options) *Session {
	s := &Session{
		api:         api,
		guard:       opts.Guard,
		obs:         opts.Observer,
		bus:         opts.Bus,
		newID:       opts.NewID,
		pageSize:    opts.PageSize,
		accumulated: []catalog.Product{},
		visible:     []catalog.Product{},
	}
	if s.guard == nil {
		s.guard = guard.New(guard.DefaultPolicy)
	}
	if s.obs == nil {
		s.obs = observe.Discard()
	}
	if s.bus == nil {
		s.bus = NewEventBus()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.pageSize <= 0 {
		s.pageSize = searchapi.DefaultPageSize
	}
	return s
}

// Bus returns the bus the session publishes on.
func (s *Session) Bus() *EventBus {
	return s.bus
}

// StartTextSearch begins a new session for query. A blank query is ignored.
func (s *Session) StartTextSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return s.start(ctx, Query{Kind: QueryText, Text: query})
}

// StartImageSearch begins a new session for img. A nil or empty image is ignored;
// an image rejected by the upload policy fails without touching the session.
func (s *Session) StartImageSearch(ctx context.Context, img *catalog.Image) error {
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	if v := s.guard.CheckImage(img.Name, int64(len(img.Data))); v != nil {
		s.mu.Lock()
		s.lastError = v.Message
		s.mu.Unlock()
		s.obs.Log().Warn().Str("rule", v.Rule).Str("image", img.Name).Msg("image rejected")
		return v
	}
	return s.start(ctx, Query{Kind: QueryImage, Image: img})
}

// LoadMore fetches the next page of the active session. It does nothing when
// there is no session, a page is already in flight, or the last page was short.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.pending.Kind == QueryNone || s.inFlight || s.exhausted {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.loading++
	s.lastError = ""
	gen := s.generation
	req := s.requestLocked(len(s.accumulated))
	s.mu.Unlock()

	s.bus.PublishWithData(EventPageRequested, req.SearchID, gen, map[string]any{
		"offset": req.Offset,
	})
	return s.fetch(ctx, gen, req)
}

// ApplyFilters replaces the filters. It never fetches; ReissueWithFilters does.
func (s *Session) ApplyFilters(f catalog.Filters) error {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.filters = f.Clone()
	id, gen := s.id, s.generation
	s.mu.Unlock()

	s.bus.PublishWithData(EventFiltersChanged, id, gen, map[string]any{"filters": f.String()})
	return nil
}

// ResetFilters clears all filters without fetching.
func (s *Session) ResetFilters() {
	_ = s.ApplyFilters(catalog.Filters{})
}

// ReissueWithFilters restarts the pending search from offset 0 as a new
// session carrying the current filters.
func (s *Session) ReissueWithFilters(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	switch pending.Kind {
	case QueryText:
		return s.StartTextSearch(ctx, pending.Text)
	case QueryImage:
		return s.StartImageSearch(ctx, pending.Image)
	default:
		return nil
	}
}

// FetchDetail loads the product behind hash and its similar items. Similar
// items are narrowed to the current filters. It does not touch the result list.
func (s *Session) FetchDetail(ctx context.Context, hash string) (Detail, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return Detail{Similar: []catalog.Product{}}, nil
	}

	v, err, _ := s.details.Do(hash, func() (any, error) {
		return s.fetchDetail(ctx, hash)
	})
	if err != nil {
		return Detail{}, err
	}
	return v.(Detail), nil
}

func (s *Session) fetchDetail(ctx context.Context, hash string) (Detail, error) {
	s.mu.Lock()
	s.loading++
	s.lastError = ""
	filters := s.filters.Clone()
	s.mu.Unlock()

	detail, err := s.lookup(ctx, hash, filters)

	s.mu.Lock()
	s.loading--
	if err != nil {
		s.lastError = searchapi.UserMessage(err)
	}
	s.mu.Unlock()

	if err != nil {
		s.obs.Log().Error().Str("hash", hash).Err(err).Msg("detail lookup failed")
		s.bus.PublishWithData(EventDetailFailed, "", 0, map[string]any{"hash": hash, "error": err.Error()})
		return Detail{}, err
	}

	s.bus.PublishWithData(EventDetailLoaded, "", 0, map[string]any{
		"hash":    hash,
		"found":   detail.Product != nil,
		"similar": len(detail.Similar),
	})
	return detail, nil
}

func (s *Session) lookup(ctx context.Context, hash string, filters catalog.Filters) (Detail, error) {
	products, err := s.api.Detail(ctx, hash)
	if err != nil {
		return Detail{}, err
	}
	similar, err := s.api.Similar(ctx, hash)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Similar: make([]catalog.Product, 0, len(similar))}
	if len(products) > 0 {
		p := products[0]
		detail.Product = &p
	}
	for _, p := range similar {
		if filters.Match(p) {
			detail.Similar = append(detail.Similar, p)
		}
	}
	return detail, nil
}

// start resets the session for q and fetches page 0.
func (s *Session) start(ctx context.Context, q Query) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.id = s.newID()
	s.accumulated = []catalog.Product{}
	s.visible = []catalog.Product{}
	s.pending = q
	s.exhausted = false
	s.inFlight = true
	s.loading++
	s.lastError = ""
	req := s.requestLocked(0)
	filters := s.filters.String()
	s.mu.Unlock()

	data := map[string]any{"kind": q.Kind.String(), "filters": filters}
	switch q.Kind {
	case QueryText:
		data["query"] = q.Text
	case QueryImage:
		data["image"] = q.Image
	}
	s.bus.PublishWithData(EventSearchStarted, req.SearchID, gen, data)
	s.obs.Log().Info().
		Str("search_id", req.SearchID).
		Str("kind", q.Kind.String()).
		Str("filters", filters).
		Msg("search started")

	return s.fetch(ctx, gen, req)
}

// fetch runs req and merges the page unless gen has been superseded.
func (s *Session) fetch(ctx context.Context, gen uint64, req searchapi.SearchRequest) error {
	page, err := s.api.Search(ctx, req)

	s.mu.Lock()
	s.loading--
	if gen != s.generation {
		s.mu.Unlock()
		s.obs.Log().Debug().Str("search_id", req.SearchID).Int("offset", req.Offset).Msg("stale page discarded")
		s.bus.PublishWithData(EventPageDiscarded, req.SearchID, gen, map[string]any{"offset": req.Offset})
		return ErrStale
	}
	s.inFlight = false

	if err != nil {
		s.lastError = searchapi.UserMessage(err)
		id, msg := s.id, s.lastError
		s.mu.Unlock()

		s.obs.Log().Error().Str("search_id", id).Int("offset", req.Offset).Err(err).Msg("search failed")
		s.bus.PublishWithData(EventSearchFailed, id, gen, map[string]any{
			"offset": req.Offset,
			"error":  msg,
		})
		return fmt.Errorf("search page at offset %d: %w", req.Offset, err)
	}

	s.accumulated = append(s.accumulated, page.Data...)
	s.visible = append(s.visible, page.Data...)
	if page.SearchID != "" {
		s.id = page.SearchID
	}
	if len(page.Data) < req.Limit {
		s.exhausted = true
	}
	id, total, exhausted := s.id, len(s.accumulated), s.exhausted
	s.mu.Unlock()

	s.obs.Log().Info().
		Str("search_id", id).
		Int("offset", req.Offset).
		Int("count", len(page.Data)).
		Int("total", total).
		Msg("page merged")
	s.bus.PublishWithData(EventPageMerged, id, gen, map[string]any{
		"offset":    req.Offset,
		"count":     len(page.Data),
		"total":     total,
		"exhausted": exhausted,
	})
	return nil
}

func (s *Session) requestLocked(offset int) searchapi.SearchRequest {
	req := searchapi.SearchRequest{
		Offset:   offset,
		Limit:    s.pageSize,
		SearchID: s.id,
		Filters:  s.filters.Clone(),
	}
	switch s.pending.Kind {
	case QueryImage:
		req.Type = searchapi.ImageSearch
		req.Image = s.pending.Image
	default:
		req.Type = searchapi.TextSearch
		req.Query = s.pending.Text
	}
	return req
}

// ID returns the active session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Results returns a copy of the accumulated results.
func (s *Session) Results() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product{}, s.accumulated...)
}

// Visible returns a copy of the results currently shown.
func (s *Session) Visible() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product{}, s.visible...)
}

// Filters returns a copy of the current filters.
func (s *Session) Filters() catalog.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

// Pending returns the query of the active session.
func (s *Session) Pending() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastError returns the user-visible error of the last attempt, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Loading reports whether any operation is waiting on the network.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Exhausted reports whether the server has no further pages.
func (s *Session) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Generation: s.generation,
		Results:    append([]catalog.Product{}, s.visible...),
		Filters:    s.filters.Clone(),
		Pending:    s.pending,
		Loading:    s.loading > 0,
		Exhausted:  s.exhausted,
		LastError:  s.lastError,
	}
}
