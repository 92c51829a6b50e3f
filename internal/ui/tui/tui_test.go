package tui

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/glance/internal/command"
	"github.com/felixgeelhaar/glance/internal/searchapi"
	"github.com/felixgeelhaar/glance/internal/session"
	"github.com/felixgeelhaar/glance/internal/ui"
)

// newSession serves 20 items per page for pages sizes and one detail.
func newSession(t *testing.T, sizes ...int) (*session.Session, *atomic.Int32) {
	t.Helper()
	var searches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		r.ParseForm()
		offset, _ := strconv.Atoi(r.PostForm.Get("offset"))
		limit, _ := strconv.Atoi(r.PostForm.Get("limit"))
		n := 0
		if page := offset / limit; page < len(sizes) {
			n = sizes[page]
		}
		items := make([]string, n)
		for i := range items {
			id := offset + i + 1
			items[i] = fmt.Sprintf(`{"id":%d,"brand_name":"Brand%d","title":"Item %d","price":"10","color_text_hash":"h%d"}`, id, id, id, id)
		}
		fmt.Fprintf(w, `{"search_id":"srv","data":[%s]}`, strings.Join(items, ","))
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"title":"Item Detail","price":"10","description":"Soft cotton"}]}`))
	})
	mux.HandleFunc("/similar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similar_product_results":[{"id":9,"title":"Lookalike","price":"8"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	api, err := searchapi.New(searchapi.Options{Endpoints: searchapi.Endpoints{
		Search:  server.URL + "/search",
		Detail:  server.URL + "/detail",
		Similar: server.URL + "/similar",
	}})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return session.New(api, session.Options{}), &searches
}

func newModel(t *testing.T, s *session.Session, opts Options) Model {
	t.Helper()
	m := NewModel(context.Background(), s, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

// run executes cmd and feeds every resulting message except spinner ticks
// and blinks back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
		return m
	case opDoneMsg, commandDoneMsg, detailDoneMsg:
		next, more := m.Update(msg)
		return run(t, next.(Model), more)
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return run(t, next.(Model), cmd)
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func TestModel_InitialView(t *testing.T) {
	s, _ := newSession(t)
	m := NewModel(context.Background(), s, Options{})
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("Expected the initializing view before the first resize")
	}

	m = newModel(t, s, Options{})
	if !m.Ready {
		t.Fatal("Expected model to be ready")
	}
	view := m.View()
	if !strings.Contains(view, "glance") || !strings.Contains(view, "no results") {
		t.Errorf("Unexpected view:\n%s", view)
	}
}

func TestModel_SearchAndLoadMore(t *testing.T) {
	s, searches := newSession(t, 20, 5)
	m := newModel(t, s, Options{})

	m = typeText(m, "red dress")
	if m.Input.Value() != "red dress" {
		t.Errorf("Expected input 'red dress', got '%s'", m.Input.Value())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.Results) != 20 {
		t.Fatalf("Expected 20 results, got %d", len(m.Results))
	}
	if m.Loading || m.Error != "" {
		t.Errorf("Expected idle model without error, got loading=%v error='%s'", m.Loading, m.Error)
	}
	if !strings.Contains(m.View(), "Item 1") {
		t.Error("Expected the first item in the view")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	if len(m.Results) != 25 {
		t.Errorf("Expected 25 results, got %d", len(m.Results))
	}

	// Exhausted: the screen does not even ask.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if cmd != nil {
		t.Error("Expected no command once exhausted")
	}
	if n := searches.Load(); n != 2 {
		t.Errorf("Expected 2 searches, got %d", n)
	}
}

func TestModel_EmptyEnterIsNoop(t *testing.T) {
	s, searches := newSession(t, 20)
	m := newModel(t, s, Options{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command for an empty query")
	}
	if len(next.(Model).Results) != 0 || searches.Load() != 0 {
		t.Error("Expected no search for an empty query")
	}
}

func TestModel_SelectionAndDetail(t *testing.T) {
	s, _ := newSession(t, 3)
	m := newModel(t, s, Options{})
	m = typeText(m, "shirt")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(m.Results))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.Selected != 2 {
		t.Errorf("Selection should stop at the last result, got %d", m.Selected)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Selected != 1 {
		t.Errorf("Expected selection 1, got %d", m.Selected)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.Detail == nil || m.Detail.Product == nil {
		t.Fatal("Expected a detail with a product")
	}
	view := m.View()
	for _, want := range []string{"Item Detail", "Soft cotton", "Lookalike"} {
		if !strings.Contains(view, want) {
			t.Errorf("Detail view is missing '%s'", want)
		}
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Detail != nil {
		t.Error("Expected esc to close the detail")
	}
	if !strings.Contains(m.View(), "Item 2") {
		t.Error("Expected the grid after closing the detail")
	}
}

func TestModel_Commands(t *testing.T) {
	s, _ := newSession(t, 20)
	reg := command.NewRegistry()
	if err := command.Builtins(reg, s); err != nil {
		t.Fatal(err)
	}
	m := newModel(t, s, Options{Commands: reg})

	m = typeText(m, ":brand nike")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Input.Value() != "" {
		t.Error("Commands should clear the input")
	}
	if m.Status != "filters: brand=nike" {
		t.Errorf("Unexpected status '%s'", m.Status)
	}
	if !strings.Contains(m.View(), "brand=nike") {
		t.Error("Expected the filters in the header")
	}

	m = typeText(m, ":price 9 1")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.Error, "invalid filters") {
		t.Errorf("Expected invalid filters error, got '%s'", m.Error)
	}

	m = typeText(m, ":nope")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.Error, "unknown command") {
		t.Errorf("Expected unknown command error, got '%s'", m.Error)
	}
}

func TestModel_StatusAndLog(t *testing.T) {
	s, _ := newSession(t)
	m := newModel(t, s, Options{})

	next, _ := m.Update(StatusMsg("25 results"))
	next, _ = next.(Model).Update(LogMsg("discarded stale page"))
	m = next.(Model)
	if m.Status != "25 results" {
		t.Errorf("Unexpected status '%s'", m.Status)
	}
	if len(m.Log) != 1 || m.Log[0] != "discarded stale page" {
		t.Errorf("Unexpected log %v", m.Log)
	}
}

func TestModel_Quit(t *testing.T) {
	s, _ := newSession(t)
	m := newModel(t, s, Options{Debouncer: session.NewDebouncer(time.Hour)})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if !next.(Model).Quitting {
		t.Error("Expected model to be quitting")
	}
}

func TestModel_LiveSearch(t *testing.T) {
	s, searches := newSession(t, 4)
	d := session.NewDebouncer(20 * time.Millisecond)
	m := newModel(t, s, Options{Debouncer: d})

	m = typeText(m, "r")
	m = typeText(m, "e")
	m = typeText(m, "d")
	if !d.Pending() {
		t.Error("Expected a pending live query")
	}

	msg := m.waitLive()()
	if msg != liveQueryMsg("red") {
		t.Fatalf("Expected live query 'red', got %v", msg)
	}

	next, cmd := m.Update(msg)
	m = next.(Model)
	// The returned batch re-arms the live listener; run only the search.
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("Expected a batch, got %T", cmd())
	}
	for _, c := range batch[1:] {
		m = run(t, m, c)
	}
	if len(m.Results) != 4 {
		t.Errorf("Expected 4 results, got %d", len(m.Results))
	}
	if n := searches.Load(); n != 1 {
		t.Errorf("Expected 1 search, got %d", n)
	}
}

func TestModel_Columns(t *testing.T) {
	s, _ := newSession(t)

	tests := []struct {
		name  string
		tiers ui.Tiers
		width int
		want  int
	}{
		{"compact wide terminal", ui.CompactTiers, 80, 2},
		{"compact narrow terminal", ui.CompactTiers, 60, 1},
		{"wide", ui.WideTiers, 165, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), s, Options{Tiers: tt.tiers})
			next, _ := m.Update(tea.WindowSizeMsg{Width: tt.width, Height: 30})
			if got := next.(Model).columns(); got != tt.want {
				t.Errorf("columns() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestModel_Initial(t *testing.T) {
	s, searches := newSession(t, 7)
	m := NewModel(context.Background(), s, Options{Initial: "boots"})
	if m.Input.Value() != "boots" || !m.Loading {
		t.Errorf("Expected loading model with input 'boots', got '%s' loading=%v", m.Input.Value(), m.Loading)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	batch, ok := m.Init()().(tea.BatchMsg)
	if !ok {
		t.Fatal("Expected Init to return a batch")
	}
	// Skip the cursor blink; run the spinner tick and the search.
	for _, c := range batch[1:] {
		m = run(t, m, c)
	}
	if len(m.Results) != 7 || m.Loading {
		t.Errorf("Expected 7 results and idle, got %d loading=%v", len(m.Results), m.Loading)
	}
	if n := searches.Load(); n != 1 {
		t.Errorf("Expected 1 search, got %d", n)
	}
}
