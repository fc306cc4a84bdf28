package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/clock"
	"github.com/Shivanand-hulikatti/society-events/internal/model"
	"github.com/Shivanand-hulikatti/society-events/internal/notify"
	"github.com/Shivanand-hulikatti/society-events/internal/service"
	"github.com/Shivanand-hulikatti/society-events/internal/store"
)

var now = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeJournal struct {
	mu            sync.Mutex
	events        []model.Event
	registrations []model.Registration
	cancellations []model.Registration
	err           error
}

func (f *fakeJournal) SaveEvent(_ context.Context, e model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeJournal) RecordRegistration(_ context.Context, reg model.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, reg)
	return f.err
}

func (f *fakeJournal) RecordCancellation(_ context.Context, reg model.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancellations = append(f.cancellations, reg)
	return f.err
}

type fakePublisher struct {
	mu      sync.Mutex
	notices []notify.Notice
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, n notify.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return f.err
}

type fixture struct {
	router  http.Handler
	journal *fakeJournal
	pub     *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	capacity := 1
	s, err := store.Seed([]model.Event{
		{
			ID:           "pottery",
			Title:        "Pottery Basics",
			StartDate:    now.Add(48 * time.Hour),
			Location:     "Studio",
			Category:     model.CategoryWorkshop,
			Difficulty:   model.DifficultyBeginner,
			MaxAttendees: &capacity,
			Featured:     true,
		},
		{
			ID:         "gala",
			Title:      "Summer Gala",
			StartDate:  now.Add(30 * 24 * time.Hour),
			Category:   model.CategorySocial,
			Difficulty: model.DifficultyAllLevels,
		},
		{
			ID:         "old",
			Title:      "Winter Talk",
			StartDate:  now.Add(-30 * 24 * time.Hour),
			Category:   model.CategoryMeeting,
			Difficulty: model.DifficultyAllLevels,
		},
	}, nil)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	c := clock.Fixed(now)
	f := &fixture{journal: &fakeJournal{}, pub: &fakePublisher{}}
	svc := service.NewEventService(s, c, service.Options{Journal: f.journal, Log: zerolog.Nop()})
	h := NewEventHandler(svc, f.pub, c, zerolog.Nop())

	r := chi.NewRouter()
	r.Use(CORS)
	h.Routes(r)
	f.router = r
	return f
}

func (f *fixture) do(method, path, member, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if member != "" {
		req.Header.Set(MemberHeader, member)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		status int
		ids    []string
	}{
		{"all in store order", "/events", http.StatusOK, []string{"pottery", "gala", "old"}},
		{"upcoming soonest first", "/events?status=upcoming", http.StatusOK, []string{"pottery", "gala"}},
		{"unknown status", "/events?status=someday", http.StatusOK, []string{}},
		{"category", "/events?category=social", http.StatusOK, []string{"gala"}},
		{"search", "/events?q=pottery", http.StatusOK, []string{"pottery"}},
		{"date range ascending", "/events?from=2025-05-01&to=2025-06-30", http.StatusOK, []string{"pottery", "gala"}},
		{"half range", "/events?from=2025-05-01", http.StatusBadRequest, nil},
		{"bad date", "/events?from=yesterday&to=2025-06-30", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodGet, tt.path, "", "")
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			got := decode[[]struct {
				ID string `json:"id"`
			}](t, rr)
			if len(got) != len(tt.ids) {
				t.Fatalf("expected %d events, got %d", len(tt.ids), len(got))
			}
			for i, id := range tt.ids {
				if got[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestGetEventView(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/events/gala", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decode[map[string]any](t, rr)
	if got["available_spots"] != "Unlimited" {
		t.Fatalf("expected Unlimited spots, got %v", got["available_spots"])
	}
	if got["time_until_label"] != "In 30 days" {
		t.Fatalf("expected In 30 days, got %v", got["time_until_label"])
	}

	if rr := f.do(http.MethodGet, "/events/missing", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestFeaturedAndCategory(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/events/featured?limit=3", "", "")
	if got := decode[[]map[string]any](t, rr); len(got) != 1 || got[0]["id"] != "pottery" {
		t.Fatalf("unexpected featured %v", got)
	}

	rr = f.do(http.MethodGet, "/events/category/meeting", "", "")
	if got := decode[[]map[string]any](t, rr); len(got) != 0 {
		t.Fatalf("expected past meeting excluded, got %v", got)
	}

	if rr := f.do(http.MethodGet, "/events/featured?limit=0", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRegisterFlow(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/events/pottery/register", "m1",
		`{"display_name":"Ada","special_requests":"wheel please"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	reg := decode[model.Registration](t, rr)
	if reg.MemberDisplayName != "Ada" || reg.SpecialRequests != "wheel please" || reg.Status != model.StatusConfirmed {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if len(f.journal.registrations) != 1 {
		t.Fatalf("expected registration recorded, got %d", len(f.journal.registrations))
	}
	if len(f.pub.notices) != 1 || f.pub.notices[0].Kind != notify.KindRegistered || f.pub.notices[0].EventTitle != "Pottery Basics" {
		t.Fatalf("unexpected notices %+v", f.pub.notices)
	}

	if rr := f.do(http.MethodPost, "/events/pottery/register", "m1", ""); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/events/pottery/register", "m2", ""); rr.Code != http.StatusConflict {
		t.Fatalf("full: expected 409, got %d", rr.Code)
	}

	rr = f.do(http.MethodGet, "/members/m1/registrations", "", "")
	if got := decode[[]model.Registration](t, rr); len(got) != 1 {
		t.Fatalf("expected 1 member registration, got %d", len(got))
	}

	rr = f.do(http.MethodDelete, "/events/pottery/register", "m1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rr.Code)
	}
	if got := decode[model.Registration](t, rr); got.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if len(f.journal.cancellations) != 1 || len(f.pub.notices) != 2 {
		t.Fatalf("expected cancellation recorded and published")
	}

	if rr := f.do(http.MethodPost, "/events/pottery/register", "m2", ""); rr.Code != http.StatusCreated {
		t.Fatalf("freed spot: expected 201, got %d", rr.Code)
	}

	rr = f.do(http.MethodGet, "/events/pottery/registrations", "", "")
	if got := decode[[]model.Registration](t, rr); len(got) != 1 || got[0].MemberID != "m2" {
		t.Fatalf("unexpected registrations %+v", got)
	}
}

func TestRegisterErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		member string
		body   string
		status int
	}{
		{"no member", http.MethodPost, "/events/gala/register", "", "", http.StatusUnauthorized},
		{"blank member", http.MethodPost, "/events/gala/register", "   ", "", http.StatusUnauthorized},
		{"missing event", http.MethodPost, "/events/nope/register", "m1", "", http.StatusNotFound},
		{"bad body", http.MethodPost, "/events/gala/register", "m1", `{"unknown":1}`, http.StatusBadRequest},
		{"cancel unregistered", http.MethodDelete, "/events/gala/register", "m1", "", http.StatusNotFound},
		{"cancel no member", http.MethodDelete, "/events/gala/register", "", "", http.StatusUnauthorized},
		{"registrations missing event", http.MethodGet, "/events/nope/registrations", "", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(tt.method, tt.path, tt.member, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
	if len(f.pub.notices) != 0 {
		t.Fatalf("expected no notices, got %d", len(f.pub.notices))
	}
}

func TestSideEffectFailuresDoNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("db down")
	f.pub.err = errors.New("broker down")

	if rr := f.do(http.MethodPost, "/events/gala/register", "m1", ""); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)

	body := `{"title":"Glaze Lab","start_date":"2025-06-01T18:00:00Z","category":"workshop","difficulty":"intermediate","price":12.5}`
	rr := f.do(http.MethodPost, "/events", "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	e := decode[model.Event](t, rr)
	if e.ID == "" || e.Location != "TBD" {
		t.Fatalf("unexpected event %+v", e)
	}
	if len(f.journal.events) != 1 {
		t.Fatalf("expected event persisted")
	}

	rr = f.do(http.MethodPost, "/events", "", `{"title":"  ","start_date":"2025-06-01T18:00:00Z","category":"nope","difficulty":"beginner"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := decode[validationResponse](t, rr)
	if len(resp.Fields) < 2 {
		t.Fatalf("expected title and category failures, got %+v", resp.Fields)
	}

	if rr := f.do(http.MethodPost, "/events", "", `{`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/calendar?year=2025&month=5", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cells := decode[[]struct {
		Date   time.Time         `json:"date"`
		Events []json.RawMessage `json:"events"`
	}](t, rr)
	if len(cells) != 42 {
		t.Fatalf("expected 42 cells, got %d", len(cells))
	}
	var total int
	for _, c := range cells {
		total += len(c.Events)
	}
	if total != 1 {
		t.Fatalf("expected pottery on the May grid, got %d entries", total)
	}

	for _, path := range []string{"/calendar?month=13", "/calendar?year=abc"} {
		if rr := f.do(http.MethodGet, path, "", ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rr.Code)
		}
	}
}

func TestFeeds(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/feed.rss", "", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/rss+xml") {
		t.Fatalf("unexpected rss response %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<title>Pottery Basics</title>") || strings.Contains(rr.Body.String(), "Winter Talk") {
		t.Fatalf("unexpected rss body %s", rr.Body.String())
	}

	rr = f.do(http.MethodGet, "/feed.ics", "", "")
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if got := strings.Count(rr.Body.String(), "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("expected 2 upcoming events, got %d", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/events/gala/register", nil)
	req.Header.Set("Origin", "https://members.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", MemberHeader)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK && rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight success, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected any origin allowed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.EqualFold(got, MemberHeader) {
		t.Fatalf("expected member header allowed, got %q", got)
	}
}

func TestCORSSimpleRequest(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Origin", "https://members.example")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected 200 with CORS header, got %d %q", rr.Code, rr.Header().Get("Access-Control-Allow-Origin"))
	}
}
