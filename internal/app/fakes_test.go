package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// fakeSheets is an in-memory accessor whose calls can be intercepted.
// Hooks left nil fall through to the embedded Memory.
type fakeSheets struct {
	*sheets.Memory

	mu      sync.Mutex
	reads   []string
	appends int

	readRangeFn   func(context.Context, string) ([][]string, error)
	appendRowFn   func(context.Context, string, []string) error
	updateRangeFn func(context.Context, string, [][]string) error
	listTablesFn  func(context.Context) ([]sheets.TableInfo, error)
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{Memory: sheets.NewMemory()}
}

func (f *fakeSheets) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	f.mu.Lock()
	f.reads = append(f.reads, rng)
	f.mu.Unlock()
	if f.readRangeFn != nil {
		return f.readRangeFn(ctx, rng)
	}
	return f.Memory.ReadRange(ctx, rng)
}

func (f *fakeSheets) AppendRow(ctx context.Context, rng string, row []string) error {
	f.mu.Lock()
	f.appends++
	f.mu.Unlock()
	if f.appendRowFn != nil {
		return f.appendRowFn(ctx, rng, row)
	}
	return f.Memory.AppendRow(ctx, rng, row)
}

func (f *fakeSheets) UpdateRange(ctx context.Context, rng string, rows [][]string) error {
	if f.updateRangeFn != nil {
		return f.updateRangeFn(ctx, rng, rows)
	}
	return f.Memory.UpdateRange(ctx, rng, rows)
}

func (f *fakeSheets) ListTables(ctx context.Context) ([]sheets.TableInfo, error) {
	if f.listTablesFn != nil {
		return f.listTablesFn(ctx)
	}
	return f.Memory.ListTables(ctx)
}

func (f *fakeSheets) readCount(rng string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reads {
		if r == rng {
			n++
		}
	}
	return n
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []Record
	removed []string
}

func (f *fakeIndexer) IndexParticipant(profile string, rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, rec)
}

func (f *fakeIndexer) RemoveParticipant(profile, identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, profile+"/"+identifier)
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var registrationHeaders = []string{
	"Código", "Nome completo", "CPF", "Cargo", "Nome para crachá", "Data de inscrição",
	"Conferido", "Revisado por", "Conferido em",
}

type testEnv struct {
	sheets  *fakeSheets
	cache   *cache.Memory
	clock   *testClock
	index   *fakeIndexer
	records *Records
	votes   *Votes
	catalog *catalog.Catalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() error = %v", err)
	}
	env := &testEnv{
		sheets:  newFakeSheets(),
		clock:   &testClock{now: time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)},
		index:   &fakeIndexer{},
		catalog: cat,
	}
	env.cache = cache.NewMemoryWithClock(0, env.clock.Now)
	env.sheets.AddTable("Conselheiros", registrationHeaders)

	opts := Options{Indexer: env.index, Now: env.clock.Now, Location: time.UTC}
	env.records = NewRecords(cat, env.sheets, env.cache, opts)
	env.votes = NewVotes(cat, env.sheets, env.cache, env.records, opts)
	return env
}

// seed appends rows below the header of table.
func (e *testEnv) seed(table string, rows ...[]string) {
	for _, row := range rows {
		_ = e.sheets.Memory.AppendRow(context.Background(), sheets.TableRange(table).String(), row)
	}
}

func registrant(code, name, cpf, reviewed string) []string {
	return []string{code, name, cpf, "", "", "", reviewed, "", ""}
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v (kind %q)", kind, err, KindOf(err))
	}
}
