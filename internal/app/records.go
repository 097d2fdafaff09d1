package app

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// localTimeLayout is how registration and review timestamps are written.
const localTimeLayout = "02/01/2006 15:04:05"

const defaultPageSize = 20

// Indexer is told about participant changes so a search index can follow
// the store. Implementations must not block.
type Indexer interface {
	IndexParticipant(profile string, rec Record)
	RemoveParticipant(profile, identifier string)
}

type noopIndexer struct{}

func (noopIndexer) IndexParticipant(string, Record)   {}
func (noopIndexer) RemoveParticipant(string, string) {}

// Options carries the optional collaborators of Records and Votes.
type Options struct {
	CacheTTL time.Duration
	Logger   *slog.Logger
	Indexer  Indexer
	Now      func() time.Time
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Indexer == nil {
		o.Indexer = noopIndexer{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = defaultLocation()
	}
	return o
}

func defaultLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

// Records is the CRUD facade over the per-profile registration tables.
type Records struct {
	catalog *catalog.Catalog
	sheets  sheets.Accessor
	tables  *tableLoader
	codes   *CodeGenerator
	index   Indexer
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

func NewRecords(cat *catalog.Catalog, acc sheets.Accessor, c cache.Cache, opts Options) *Records {
	opts = opts.withDefaults()
	if c == nil {
		c = cache.NewMemory(0)
	}
	return &Records{
		catalog: cat,
		sheets:  acc,
		tables:  &tableLoader{sheets: acc, cache: c, ttl: opts.CacheTTL, logger: opts.Logger},
		codes:   NewCodeGenerator(acc),
		index:   opts.Indexer,
		logger:  opts.Logger,
		now:     opts.Now,
		loc:     opts.Location,
	}
}

// SetIndexer replaces the indexer. The search service depends on Records,
// so it is attached after both are built.
func (r *Records) SetIndexer(ix Indexer) {
	if ix == nil {
		ix = noopIndexer{}
	}
	r.index = ix
}

func (r *Records) profile(name string) (catalog.Profile, error) {
	p, ok := r.catalog.Profile(name)
	if !ok {
		return catalog.Profile{}, unknownGroupError("UNKNOWN_PROFILE", name)
	}
	return p, nil
}

func (r *Records) timestamp() string {
	return r.now().In(r.loc).Format(localTimeLayout)
}

// FindByIdentifier returns the first row whose cpf digits equal id's
// digits, or nil.
func (r *Records) FindByIdentifier(ctx context.Context, profile, id string) (*Record, error) {
	p, err := r.profile(profile)
	if err != nil {
		return nil, err
	}
	return r.findByIdentifier(ctx, p, id)
}

func (r *Records) findByIdentifier(ctx context.Context, p catalog.Profile, id string) (*Record, error) {
	digits := onlyDigits(id)
	if digits == "" {
		return nil, nil
	}
	t, err := r.tables.load(ctx, nsRecords, p.Table)
	if err != nil {
		return nil, err
	}
	if !t.schema.Has(keyIdentifier) {
		return nil, schemaError(p.Table, keyIdentifier)
	}
	for i := range t.rows {
		if onlyDigits(t.cell(i, keyIdentifier)) == digits {
			rec := t.record(i)
			return &rec, nil
		}
	}
	return nil, nil
}

// Create validates form, allocates a code and appends a new row.
func (r *Records) Create(ctx context.Context, profile string, form map[string]string) (string, error) {
	p, err := r.profile(profile)
	if err != nil {
		return "", err
	}
	fields := normalizeForm(form)
	if err := validateFields(fields); err != nil {
		return "", err
	}

	existing, err := r.findByIdentifier(ctx, p, fields[keyIdentifier])
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", duplicateError("a registration with this cpf already exists")
	}

	t, err := r.tables.load(ctx, nsRecords, p.Table)
	if err != nil {
		return "", err
	}
	if t.schema.Width() == 0 {
		return "", schemaError(p.Table, keyIdentifier, keyName)
	}

	code, err := r.codes.NextCode(ctx, p)
	if err != nil {
		return "", err
	}

	values := r.buildValues(t.schema, nil, fields)
	values[keyCode] = code
	if t.schema.Has(keyCreatedAt) {
		values[keyCreatedAt] = r.timestamp()
	}
	row := t.schema.RowFromRecord(values)

	if err := r.sheets.AppendRow(ctx, sheets.TableRange(p.Table).String(), row); err != nil {
		return "", storeError("append to "+p.Table, err)
	}
	r.tables.invalidate(ctx, nsRecords, p.Table)
	r.index.IndexParticipant(p.Key, Record{Fields: t.schema.RecordFromRow(row)})

	r.logger.Info("registration created", "profile", p.Key, "code", code)
	return code, nil
}

// protectedKeys are owned by Confirm and MarkReviewed; Update ignores them.
var protectedKeys = []string{keyCode, keyReviewed, keyReviewedBy, keyReviewedAt}

// Update merges form into the row at rowIndex and rewrites the whole row.
// Columns absent from form keep their stored value, and the code and review
// columns are never taken from form. Concurrent updates of
// the same row are last-writer-wins.
func (r *Records) Update(ctx context.Context, profile string, rowIndex int, form map[string]string) error {
	if rowIndex < firstDataRow {
		return invalidRowError(rowIndex)
	}
	p, err := r.profile(profile)
	if err != nil {
		return err
	}
	schema, err := readSchema(ctx, r.sheets, p.Table)
	if err != nil {
		return err
	}
	current, ok, err := readRow(ctx, r.sheets, p.Table, rowIndex, schema.Width())
	if err != nil {
		return err
	}
	if !ok {
		return invalidRowError(rowIndex)
	}

	changes := normalizeForm(form)
	for _, k := range protectedKeys {
		delete(changes, k)
	}
	values := r.buildValues(schema, schema.RecordFromRow(current), changes)
	if err := validateFields(values); err != nil {
		return err
	}

	other, err := r.findByIdentifier(ctx, p, values[keyIdentifier])
	if err != nil {
		return err
	}
	if other != nil && other.RowIndex != rowIndex {
		return duplicateError("another registration already uses this cpf")
	}

	row := schema.RowFromRecord(values)
	rng := sheets.RowRange(p.Table, rowIndex, schema.Width()).String()
	if err := r.sheets.UpdateRange(ctx, rng, [][]string{row}); err != nil {
		return storeError("update "+p.Table, err)
	}
	r.tables.invalidate(ctx, nsRecords, p.Table)
	r.index.IndexParticipant(p.Key, Record{Fields: schema.RecordFromRow(row), RowIndex: rowIndex})
	return nil
}

// Confirm returns the row's code, allocating and writing one only when
// the code cell is empty. Calling it again returns the same code.
func (r *Records) Confirm(ctx context.Context, profile string, rowIndex int) (string, error) {
	if rowIndex < firstDataRow {
		return "", invalidRowError(rowIndex)
	}
	p, err := r.profile(profile)
	if err != nil {
		return "", err
	}
	schema, err := readSchema(ctx, r.sheets, p.Table)
	if err != nil {
		return "", err
	}
	col := schema.Index(keyCode)
	if col < 0 {
		return "", schemaError(p.Table, keyCode)
	}
	row, ok, err := readRow(ctx, r.sheets, p.Table, rowIndex, schema.Width())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", invalidRowError(rowIndex)
	}
	if current := strings.TrimSpace(schema.Cell(row, keyCode)); current != "" {
		return current, nil
	}

	code, err := r.codes.NextCode(ctx, p)
	if err != nil {
		return "", err
	}
	cell := sheets.CellRange(p.Table, col+1, rowIndex).String()
	if err := r.sheets.UpdateRange(ctx, cell, [][]string{{code}}); err != nil {
		return "", storeError("write code to "+p.Table, err)
	}
	r.tables.invalidate(ctx, nsRecords, p.Table)

	fields := schema.RecordFromRow(row)
	fields[keyCode] = code
	r.index.IndexParticipant(p.Key, Record{Fields: fields, RowIndex: rowIndex})

	r.logger.Info("registration confirmed", "profile", p.Key, "row", rowIndex, "code", code)
	return code, nil
}

// Cancel deletes the row at rowIndex. Every later row moves up by one, so
// row indexes read before the call are stale afterwards.
func (r *Records) Cancel(ctx context.Context, profile string, rowIndex int) error {
	if rowIndex < firstDataRow {
		return invalidRowError(rowIndex)
	}
	p, err := r.profile(profile)
	if err != nil {
		return err
	}
	info, found, err := sheets.FindTable(ctx, r.sheets, p.Table)
	if err != nil {
		return transportError("list tables", err)
	}
	if !found {
		return notFoundError("TABLE_NOT_FOUND", "table "+p.Table+" not found")
	}

	schema, err := readSchema(ctx, r.sheets, info.Title)
	if err != nil {
		return err
	}
	row, ok, err := readRow(ctx, r.sheets, info.Title, rowIndex, schema.Width())
	if err != nil {
		return err
	}
	if !ok {
		return invalidRowError(rowIndex)
	}

	if err := r.sheets.DeleteRow(ctx, info.ID, rowIndex); err != nil {
		return storeError("delete row of "+p.Table, err)
	}
	r.tables.invalidate(ctx, nsRecords, p.Table)
	if id := onlyDigits(schema.Cell(row, keyIdentifier)); id != "" {
		r.index.RemoveParticipant(p.Key, id)
	}

	r.logger.Info("registration cancelled", "profile", p.Key, "row", rowIndex)
	return nil
}

type Status string

const (
	StatusActive Status = "active"
	StatusDone   Status = "done"
	StatusAll    Status = "all"
)

type Page struct {
	Limit  int
	Offset int
}

// AllRows is a Page that returns every matching row.
var AllRows = Page{Limit: math.MaxInt32}

type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
}

// List filters a profile's rows by review status and query and returns
// the [offset, offset+limit) slice of the matches in storage order.
// Pages are not stable across concurrent writes.
func (r *Records) List(ctx context.Context, profile string, status Status, query string, page Page) (ListResult, error) {
	switch status {
	case "":
		status = StatusAll
	case StatusActive, StatusDone, StatusAll:
	default:
		return ListResult{}, validationError("unknown status", map[string]string{"status": string(status)})
	}
	p, err := r.profile(profile)
	if err != nil {
		return ListResult{}, err
	}
	t, err := r.tables.load(ctx, nsRecords, p.Table)
	if err != nil {
		return ListResult{}, err
	}

	query = strings.TrimSpace(query)
	queryDigits := onlyDigits(query)
	queryLower := strings.ToLower(query)

	var matched []int
	for i := range t.rows {
		reviewed := isTruthy(t.cell(i, keyReviewed))
		if (status == StatusActive && reviewed) || (status == StatusDone && !reviewed) {
			continue
		}
		if query != "" && !matchesQuery(t, i, queryDigits, queryLower) {
			continue
		}
		matched = append(matched, i)
	}

	limit, offset := page.Limit, page.Offset
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	start := min(offset, len(matched))
	end := len(matched)
	if limit < end-start {
		end = start + limit
	}

	out := ListResult{Records: make([]Record, 0, end-start), Total: len(matched)}
	for _, i := range matched[start:end] {
		out.Records = append(out.Records, t.record(i))
	}
	return out, nil
}

func matchesQuery(t table, i int, digits, lower string) bool {
	if digits != "" && strings.Contains(onlyDigits(t.cell(i, keyIdentifier)), digits) {
		return true
	}
	return strings.Contains(strings.ToLower(t.cell(i, keyName)), lower)
}

func isTruthy(cell string) bool {
	return truthyTokens[headers.NormalizeKey(cell)]
}

type ReviewInput struct {
	RowIndex   int
	ReviewedBy string
	Reviewed   bool
}

// MarkReviewed sets or clears the three review columns of a row and
// writes the full row back.
func (r *Records) MarkReviewed(ctx context.Context, profile string, in ReviewInput) error {
	if in.RowIndex < firstDataRow {
		return invalidRowError(in.RowIndex)
	}
	reviewer := strings.TrimSpace(in.ReviewedBy)
	if in.Reviewed && reviewer == "" {
		return validationError("reviewer is required", map[string]string{keyReviewedBy: "required"})
	}
	p, err := r.profile(profile)
	if err != nil {
		return err
	}
	schema, err := readSchema(ctx, r.sheets, p.Table)
	if err != nil {
		return err
	}
	if missing := schema.Missing(keyReviewed, keyReviewedBy, keyReviewedAt); len(missing) > 0 {
		return schemaError(p.Table, missing...)
	}
	row, ok, err := readRow(ctx, r.sheets, p.Table, in.RowIndex, schema.Width())
	if err != nil {
		return err
	}
	if !ok {
		return invalidRowError(in.RowIndex)
	}

	values := schema.RecordFromRow(row)
	if values[keyIdentifier] != "" {
		values[keyIdentifier] = quoteIdentifier(values[keyIdentifier])
	}
	if in.Reviewed {
		values[keyReviewed] = "Sim"
		values[keyReviewedBy] = reviewer
		values[keyReviewedAt] = r.timestamp()
	} else {
		values[keyReviewed] = ""
		values[keyReviewedBy] = ""
		values[keyReviewedAt] = ""
	}

	out := schema.RowFromRecord(values)
	rng := sheets.RowRange(p.Table, in.RowIndex, schema.Width()).String()
	if err := r.sheets.UpdateRange(ctx, rng, [][]string{out}); err != nil {
		return storeError("update "+p.Table, err)
	}
	r.tables.invalidate(ctx, nsRecords, p.Table)
	r.index.IndexParticipant(p.Key, Record{Fields: schema.RecordFromRow(out), RowIndex: in.RowIndex})
	return nil
}

// Snapshot returns the profile's table as stored, header row first.
func (r *Records) Snapshot(ctx context.Context, profile string) (catalog.Profile, cache.Snapshot, error) {
	p, err := r.profile(profile)
	if err != nil {
		return catalog.Profile{}, cache.Snapshot{}, err
	}
	t, err := r.tables.loadFresh(ctx, nsRecords, p.Table)
	if err != nil {
		return catalog.Profile{}, cache.Snapshot{}, err
	}
	rows := sheets.CloneGrid(t.rows)
	if col := t.schema.Index(keyIdentifier); col >= 0 {
		for _, row := range rows {
			if col < len(row) {
				row[col] = unquoteIdentifier(row[col])
			}
		}
	}
	return p, cache.Snapshot{Headers: t.schema.Headers, Rows: rows}, nil
}

// buildValues merges form over existing and applies the write-side
// formatting: title case on name fields and a quoted cpf.
func (r *Records) buildValues(schema headers.Schema, existing, form map[string]string) map[string]string {
	values := make(map[string]string, schema.Width())
	for k, v := range existing {
		values[k] = v
	}
	for k, v := range form {
		values[k] = v
	}
	for _, k := range titleCasedKeys {
		if v, ok := values[k]; ok {
			values[k] = headers.TitleCase(v)
		}
	}
	values[keyIdentifier] = quoteIdentifier(values[keyIdentifier])
	return values
}

// normalizeForm keys a submitted form by logical column and trims values.
func normalizeForm(form map[string]string) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		key := headers.Key(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func validateFields(fields map[string]string) error {
	problems := map[string]string{}
	if len(onlyDigits(fields[keyIdentifier])) != identifierDigits {
		problems[keyIdentifier] = "must have 11 digits"
	}
	if strings.TrimSpace(fields[keyName]) == "" {
		problems[keyName] = "required"
	}
	if len(problems) > 0 {
		return validationError("invalid registration", problems)
	}
	return nil
}
