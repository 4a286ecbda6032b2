package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/amazon"
	"github.com/sameehj/officemcp/pkg/backend/maths"
	"github.com/sameehj/officemcp/pkg/backend/odoo"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
	"github.com/sameehj/officemcp/pkg/backend/storage"
	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/dispatch"
	"github.com/sameehj/officemcp/pkg/envelope"
)

func newDispatcher(d Deps) *dispatch.Dispatcher {
	return dispatch.New(catalog.Default(), Table(d))
}

func TestTableCoversCatalog(t *testing.T) {
	t.Parallel()

	table := Table(Deps{})
	names := catalog.Default().Names()
	if len(table) != len(names) {
		t.Fatalf("table has %d handlers, catalog has %d tools", len(table), len(names))
	}
	for _, name := range names {
		if table[name] == nil {
			t.Fatalf("tool %s has no handler", name)
		}
	}
}

func TestUnconfiguredBackendsAreUnavailable(t *testing.T) {
	t.Parallel()

	d := newDispatcher(Deps{})
	env := d.Dispatch(context.Background(), "get_coordinates", map[string]any{"location_name": "Paris"})
	if env.Kind() != envelope.KindUnavailable || env.HTTPStatus() != 503 {
		t.Fatalf("expected Unavailable, got %+v", env.Error)
	}
	if env.Error.Message != "Weather service is not configured" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func newStorage(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestStorageTools(t *testing.T) {
	t.Parallel()

	store := newStorage(t)
	ctx := context.Background()
	if err := store.DB().WithContext(ctx).Create(&storage.Message{ChatID: "C1", Role: "user", SortID: 10, Content: "hi"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := newDispatcher(Deps{Storage: store})

	env := d.Dispatch(ctx, "get_message_by_sort_id", map[string]any{
		"role": "user", "chat_id": "C1", "sort_id": json.Number("10"),
	})
	if env.IsError() || env.Operation != "get_message" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if msg := env.Data.(storage.Message); msg.Content != "hi" {
		t.Fatalf("unexpected message %+v", msg)
	}

	env = d.Dispatch(ctx, "get_message_by_sort_id", map[string]any{"role": "user", "chat_id": "C1", "sort_id": 11})
	if env.Kind() != envelope.KindNotFound {
		t.Fatalf("expected NotFound, got %+v", env.Error)
	}

	env = d.Dispatch(ctx, "get_messages_in_range", map[string]any{
		"chat_id": "C1", "start_sort_id": json.Number("20"), "end_sort_id": json.Number("20"),
	})
	if env.Kind() != envelope.KindBadRequest || env.Error.Message != "Start sort ID must be less than end sort ID" {
		t.Fatalf("expected BadRequest range, got %+v", env.Error)
	}

	env = d.Dispatch(ctx, "manage_mute_status", map[string]any{"chat_id": "C1", "status": "TRUE"})
	if env.IsError() || env.Operation != "manage_mute_status" {
		t.Fatalf("unexpected mute envelope %+v", env)
	}
	if res := env.Data.(storage.MuteResult); !res.Muted || res.Action != "set" {
		t.Fatalf("unexpected mute result %+v", res)
	}
	env = d.Dispatch(ctx, "manage_mute_status", map[string]any{"chat_id": "C1", "status": "maybe"})
	if env.Kind() != envelope.KindBadRequest {
		t.Fatalf("expected BadRequest status, got %+v", env.Error)
	}

	env = d.Dispatch(ctx, "get_users", nil)
	if env.IsError() || env.Count == nil || *env.Count != 0 {
		t.Fatalf("expected empty user list with count, got %+v", env)
	}
}

func TestShortenURLTool(t *testing.T) {
	t.Parallel()

	short := shortener.New(nil, "https://s.example")
	d := newDispatcher(Deps{Shortener: short})
	ctx := context.Background()

	env := d.Dispatch(ctx, "shorten_url", map[string]any{"url": "https://go.dev", "custom_code": "go"})
	if env.IsError() {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if res := env.Data.(shortener.Result); res.ShortURL != "https://s.example/go" {
		t.Fatalf("unexpected result %+v", res)
	}
	env = d.Dispatch(ctx, "shorten_url", map[string]any{"url": "https://go.dev/x", "custom_code": "go"})
	if env.Kind() != envelope.KindBadRequest {
		t.Fatalf("expected BadRequest for taken code, got %+v", env.Error)
	}
	env = d.Dispatch(ctx, "shorten_url", map[string]any{"url": "https://go.dev", "custom_code": "bad code"})
	if env.Kind() != envelope.KindValidation {
		t.Fatalf("expected schema validation error, got %+v", env.Error)
	}
}

type fakeOdoo struct {
	Odoo
	model string
	id    int64
	data  map[string]any
}

func (f *fakeOdoo) UpdateRecord(_ context.Context, model string, id int64, data map[string]any) (any, error) {
	f.model, f.id, f.data = model, id, data
	return map[string]any{"result": true}, nil
}

func (f *fakeOdoo) PrintRecord(context.Context, string, int64) (odoo.Report, error) {
	return odoo.Report{}, backend.NotConfigured("Odoo connection")
}

func TestOdooUpdatePassesExtraArguments(t *testing.T) {
	t.Parallel()

	fake := &fakeOdoo{}
	d := newDispatcher(Deps{Odoo: fake})
	env := d.Dispatch(context.Background(), "odoo_update_record", map[string]any{
		"external_model": "res.partner", "record_id": json.Number("7"), "name": "ACME", "active": true,
	})
	if env.IsError() || env.Operation != "update_record" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	want := map[string]any{"name": "ACME", "active": true}
	if fake.model != "res.partner" || fake.id != 7 || !reflect.DeepEqual(fake.data, want) {
		t.Fatalf("unexpected call %s %d %v", fake.model, fake.id, fake.data)
	}

	env = d.Dispatch(context.Background(), "odoo_print_record", map[string]any{"model_name": "account.move", "record_id": 1})
	if env.Kind() != envelope.KindUnavailable {
		t.Fatalf("expected backend class mapped to Unavailable, got %+v", env.Error)
	}
}

type fakeAmazon struct {
	params amazon.SearchParams
	max    int
}

func (f *fakeAmazon) Search(_ context.Context, p amazon.SearchParams) (amazon.SearchResult, error) {
	f.params = p
	return amazon.SearchResult{Products: []amazon.Product{{ASIN: "A1"}, {ASIN: "A2"}, {ASIN: "A3"}}}, nil
}

func (f *fakeAmazon) SearchFormatted(_ context.Context, p amazon.SearchParams, maxProducts int) (string, error) {
	f.params, f.max = p, maxProducts
	return "Found 3 products.", nil
}

func TestAmazonTools(t *testing.T) {
	t.Parallel()

	fake := &fakeAmazon{}
	d := newDispatcher(Deps{Amazon: fake})
	env := d.Dispatch(context.Background(), "search_amazon_products", map[string]any{"query": "headphones", "page": json.Number("2")})
	if env.IsError() || env.Count == nil || *env.Count != 3 {
		t.Fatalf("expected products with count 3, got %+v", env)
	}
	want := amazon.SearchParams{Query: "headphones", Country: "CA", Page: 2, SortBy: "RELEVANCE", ProductCondition: "NEW", DealsAndDiscounts: "NONE"}
	if fake.params != want {
		t.Fatalf("unexpected params %+v", fake.params)
	}

	env = d.Dispatch(context.Background(), "search_and_format_products", map[string]any{"query": "mug", "max_products": 3, "sort_by": "RATING"})
	if env.IsError() || env.Data != "Found 3 products." || fake.max != 3 || fake.params.SortBy != "RATING" {
		t.Fatalf("unexpected formatted call %+v (%+v)", env, fake.params)
	}
}

type fakeMaths struct{ params map[string]any }

func (f *fakeMaths) Solve(_ context.Context, code string, params map[string]any) (maths.Solution, error) {
	f.params = params
	return maths.Solution{ExecutionStatus: "success", Variables: map[string]any{}}, nil
}

func TestSolveMathsPassesParams(t *testing.T) {
	t.Parallel()

	fake := &fakeMaths{}
	d := newDispatcher(Deps{Maths: fake})
	env := d.Dispatch(context.Background(), "solve_maths", map[string]any{"code": "result = x", "x": json.Number("4")})
	if env.IsError() {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if !reflect.DeepEqual(fake.params, map[string]any{"x": json.Number("4")}) {
		t.Fatalf("unexpected params %v", fake.params)
	}
}

func TestArgInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want int64
		bad  bool
	}{
		{in: json.Number("12"), want: 12},
		{in: json.Number("1e3"), want: 1000},
		{in: json.Number("1.5"), bad: true},
		{in: float64(3), want: 3},
		{in: 3.2, bad: true},
		{in: 9, want: 9},
		{in: "42", want: 42},
		{in: true, bad: true},
	}
	for _, tc := range cases {
		got, err := argInt(map[string]any{"n": tc.in}, "n", 0)
		if tc.bad {
			if dispatch.KindOf(err) != envelope.KindBadRequest {
				t.Fatalf("%v: expected BadRequest, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%v: got %d (%v)", tc.in, got, err)
		}
	}
	if got, _ := argInt(map[string]any{}, "n", 5); got != 5 {
		t.Fatalf("default not applied: %d", got)
	}
}
