package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/survey"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/util"
)

// utcLayout is fixed width, so string order is time order.
const utcLayout = "2006-01-02T15:04:05.000Z"

// Voter rejection reasons.
const (
	ReasonNotEligibleProfile = "NOT_ELIGIBLE_PROFILE"
	ReasonNoCode             = "NO_CODE"
	ReasonNoAttendance       = "NO_ATTENDANCE"
)

const (
	keyDefID        = "id"
	keyDefGroup     = "grupo"
	keyDefTitle     = "titulo"
	keyDefActive    = "ativo"
	keyDefQuestions = "perguntas"
	keyDefUpdatedAt = "atualizadoem"
	keyDefYear      = "ano"

	keyRespAnswers = "respostas"
	keyRespSentAt  = "enviadoem"
)

var (
	definitionHeaders = []string{"ID", "Grupo", "Título", "Ativo", "Perguntas", "Criado em", "Atualizado em", "Ano"}
	responseHeaders   = []string{"Código", "CPF", "Nome", "Título", "Respostas", "Enviado em"}
)

// Definition is one version of a poll for a group. The current definition
// of a group is the one with the greatest UpdatedAt (CreatedAt if unset).
type Definition struct {
	ID        string            `json:"id"`
	Group     string            `json:"groupLabel"`
	Title     string            `json:"title"`
	Active    bool              `json:"active"`
	Questions []survey.Question `json:"questions"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
	Year      int               `json:"year"`
	RowIndex  int               `json:"-"`
}

func (d Definition) version() string {
	if d.UpdatedAt != "" {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

type GroupSummary struct {
	ID     string      `json:"id"`
	Label  string      `json:"label"`
	Latest *Definition `json:"latest,omitempty"`
	Active bool        `json:"active"`
}

type Voter struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}

type VoterCheck struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Voter  *Voter `json:"user,omitempty"`
}

type SubmitInput struct {
	DefinitionID string
	Identifier   string
	Answers      []survey.Answer
	DurationMs   int64
}

type SubmitResult struct {
	OK        bool   `json:"ok"`
	VoterName string `json:"voterName"`
}

type StoredResponse struct {
	Answers     []survey.Answer `json:"answers"`
	DurationMs  int64           `json:"durationMs"`
	SubmittedAt string          `json:"submittedAt,omitempty"`
}

type Results struct {
	DefinitionID  string                 `json:"definitionId"`
	Title         string                 `json:"title"`
	Total         int                    `json:"total"`
	AvgDurationMs int64                  `json:"avgDurationMs"`
	Questions     []survey.QuestionTally `json:"questions"`
}

// Votes manages poll definitions and the responses recorded against them.
type Votes struct {
	catalog *catalog.Catalog
	sheets  sheets.Accessor
	tables  *tableLoader
	records *Records
	logger  *slog.Logger
	now     func() time.Time
}

func NewVotes(cat *catalog.Catalog, acc sheets.Accessor, c cache.Cache, records *Records, opts Options) *Votes {
	opts = opts.withDefaults()
	if c == nil {
		c = cache.NewMemory(0)
	}
	return &Votes{
		catalog: cat,
		sheets:  acc,
		tables:  &tableLoader{sheets: acc, cache: c, ttl: opts.CacheTTL, logger: opts.Logger},
		records: records,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

func (v *Votes) timestamp() (string, time.Time) {
	now := v.now().UTC()
	return now.Format(utcLayout), now
}

func (v *Votes) definitionsTable() string { return v.catalog.Voting.DefinitionsTable }
func (v *Votes) responsesTable() string   { return v.catalog.Voting.ResponsesTable }

func (v *Votes) loadDefinitions(ctx context.Context, fresh bool) ([]Definition, headers.Schema, error) {
	var (
		t   table
		err error
	)
	if fresh {
		t, err = v.tables.loadFresh(ctx, nsVotes, v.definitionsTable())
	} else {
		t, err = v.tables.load(ctx, nsVotes, v.definitionsTable())
	}
	if err != nil {
		return nil, headers.Schema{}, err
	}
	defs := make([]Definition, 0, len(t.rows))
	for i := range t.rows {
		d := v.parseDefinition(t, i)
		if d.ID == "" {
			continue
		}
		defs = append(defs, d)
	}
	return defs, t.schema, nil
}

func (v *Votes) parseDefinition(t table, i int) Definition {
	d := Definition{
		ID:        strings.TrimSpace(t.cell(i, keyDefID)),
		Group:     strings.TrimSpace(t.cell(i, keyDefGroup)),
		Title:     strings.TrimSpace(t.cell(i, keyDefTitle)),
		Active:    isTruthy(t.cell(i, keyDefActive)),
		CreatedAt: strings.TrimSpace(t.cell(i, keyCreatedAt)),
		UpdatedAt: strings.TrimSpace(t.cell(i, keyDefUpdatedAt)),
		RowIndex:  i + firstDataRow,
	}
	d.Year, _ = strconv.Atoi(strings.TrimSpace(t.cell(i, keyDefYear)))
	if raw := strings.TrimSpace(t.cell(i, keyDefQuestions)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.Questions); err != nil {
			v.logger.Warn("definition has unreadable questions", "id", d.ID, "error", err)
		}
	}
	return d
}

func definitionValues(d Definition) (map[string]string, error) {
	questions, err := json.Marshal(d.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	active := "Não"
	if d.Active {
		active = "Sim"
	}
	return map[string]string{
		keyDefID:        d.ID,
		keyDefGroup:     d.Group,
		keyDefTitle:     d.Title,
		keyDefActive:    active,
		keyDefQuestions: string(questions),
		keyCreatedAt:    d.CreatedAt,
		keyDefUpdatedAt: d.UpdatedAt,
		keyDefYear:      strconv.Itoa(d.Year),
	}, nil
}

// latestFor returns the current definition of group, matching the stored
// group label against the group's label or id.
func latestFor(defs []Definition, g catalog.Group) *Definition {
	label, id := headers.NormalizeKey(g.Label), headers.NormalizeKey(g.ID)
	var latest *Definition
	for i := range defs {
		key := headers.NormalizeKey(defs[i].Group)
		if key != label && key != id {
			continue
		}
		if latest == nil || defs[i].version() > latest.version() {
			latest = &defs[i]
		}
	}
	return latest
}

func findDefinition(defs []Definition, id string) (Definition, bool) {
	id = strings.TrimSpace(id)
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// ListGroupsWithLatest reports every configured group with its current
// definition, if any.
func (v *Votes) ListGroupsWithLatest(ctx context.Context) ([]GroupSummary, error) {
	defs, _, err := v.loadDefinitions(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]GroupSummary, 0, len(v.catalog.Voting.Groups))
	for _, g := range v.catalog.Voting.Groups {
		s := GroupSummary{ID: g.ID, Label: g.Label}
		if latest := latestFor(defs, g); latest != nil {
			d := *latest
			s.Latest = &d
			s.Active = d.Active
		}
		out = append(out, s)
	}
	return out, nil
}

// CreateDefinition appends a new active definition for group titled
// "<year> - <group label>".
func (v *Votes) CreateDefinition(ctx context.Context, group string, questions []survey.Question) (Definition, error) {
	g, ok := v.catalog.Group(group)
	if !ok {
		return Definition{}, unknownGroupError("UNKNOWN_GROUP", group)
	}
	qs, err := survey.NormalizeQuestions(questions)
	if err != nil {
		return Definition{}, validationError(err.Error(), nil)
	}

	stamp, now := v.timestamp()
	d := Definition{
		ID:        util.NewDefinitionID(now),
		Group:     g.Label,
		Title:     fmt.Sprintf("%d - %s", now.Year(), g.Label),
		Active:    true,
		Questions: qs,
		CreatedAt: stamp,
		UpdatedAt: stamp,
		Year:      now.Year(),
	}

	schema, err := v.ensureHeaders(ctx, v.definitionsTable(), definitionHeaders)
	if err != nil {
		return Definition{}, err
	}
	values, err := definitionValues(d)
	if err != nil {
		return Definition{}, err
	}
	if err := v.sheets.AppendRow(ctx, sheets.TableRange(v.definitionsTable()).String(), schema.RowFromRecord(values)); err != nil {
		return Definition{}, storeError("append definition", err)
	}
	v.tables.invalidate(ctx, nsVotes, v.definitionsTable())

	v.logger.Info("vote definition created", "id", d.ID, "group", g.ID, "title", d.Title)
	return d, nil
}

// UpdateDefinition replaces the questions of a definition.
func (v *Votes) UpdateDefinition(ctx context.Context, id string, questions []survey.Question) (Definition, error) {
	qs, err := survey.NormalizeQuestions(questions)
	if err != nil {
		return Definition{}, validationError(err.Error(), nil)
	}
	return v.modifyDefinition(ctx, id, func(d *Definition) { d.Questions = qs })
}

// SetActive opens or closes a definition. It also bumps UpdatedAt, so a
// reactivated older definition becomes the current one of its group.
func (v *Votes) SetActive(ctx context.Context, id string, active bool) (Definition, error) {
	return v.modifyDefinition(ctx, id, func(d *Definition) { d.Active = active })
}

func (v *Votes) modifyDefinition(ctx context.Context, id string, change func(*Definition)) (Definition, error) {
	defs, schema, err := v.loadDefinitions(ctx, true)
	if err != nil {
		return Definition{}, err
	}
	d, ok := findDefinition(defs, id)
	if !ok {
		return Definition{}, notFoundError("DEFINITION_NOT_FOUND", fmt.Sprintf("definition %q not found", id))
	}

	change(&d)
	d.UpdatedAt, _ = v.timestamp()

	values, err := definitionValues(d)
	if err != nil {
		return Definition{}, err
	}
	rng := sheets.RowRange(v.definitionsTable(), d.RowIndex, schema.Width()).String()
	if err := v.sheets.UpdateRange(ctx, rng, [][]string{schema.RowFromRecord(values)}); err != nil {
		return Definition{}, storeError("update definition", err)
	}
	v.tables.invalidate(ctx, nsVotes, v.definitionsTable())
	return d, nil
}

// DeleteDefinition removes a definition row. Responses stay in the
// responses table under the old title and are no longer reachable by id.
func (v *Votes) DeleteDefinition(ctx context.Context, id string) error {
	defs, _, err := v.loadDefinitions(ctx, true)
	if err != nil {
		return err
	}
	d, ok := findDefinition(defs, id)
	if !ok {
		return notFoundError("DEFINITION_NOT_FOUND", fmt.Sprintf("definition %q not found", id))
	}
	info, found, err := sheets.FindTable(ctx, v.sheets, v.definitionsTable())
	if err != nil {
		return transportError("list tables", err)
	}
	if !found {
		return notFoundError("TABLE_NOT_FOUND", "table "+v.definitionsTable()+" not found")
	}
	if err := v.sheets.DeleteRow(ctx, info.ID, d.RowIndex); err != nil {
		return storeError("delete definition", err)
	}
	v.tables.invalidate(ctx, nsVotes, v.definitionsTable())

	v.logger.Info("vote definition deleted", "id", d.ID, "title", d.Title)
	return nil
}

// ValidateVoter checks that identifier belongs to the voter profile, has
// a code and appears in an attendance roster.
func (v *Votes) ValidateVoter(ctx context.Context, identifier string) (VoterCheck, error) {
	rec, err := v.records.FindByIdentifier(ctx, v.catalog.Voting.VoterProfile, identifier)
	if err != nil {
		return VoterCheck{}, err
	}
	if rec == nil {
		return VoterCheck{Reason: ReasonNotEligibleProfile}, nil
	}
	voter := &Voter{
		Identifier: rec.Identifier(),
		Name:       strings.TrimSpace(rec.Get(keyName)),
		Code:       strings.TrimSpace(rec.Get(keyCode)),
	}
	if voter.Code == "" {
		return VoterCheck{Reason: ReasonNoCode, Voter: voter}, nil
	}
	present, err := v.attended(ctx, voter)
	if err != nil {
		return VoterCheck{}, err
	}
	if !present {
		return VoterCheck{Reason: ReasonNoAttendance, Voter: voter}, nil
	}
	return VoterCheck{OK: true, Voter: voter}, nil
}

// attended looks for the voter's code in each roster. A roster row that
// also carries a name must match the voter's name. Missing rosters count
// as empty.
func (v *Votes) attended(ctx context.Context, voter *Voter) (bool, error) {
	wantName := headers.NormalizeKey(voter.Name)
	for _, name := range v.catalog.Voting.AttendanceTables {
		t, found, err := v.tables.loadOptional(ctx, nsAttendance, name)
		if err != nil {
			return false, err
		}
		if !found || !t.schema.Has(keyCode) {
			continue
		}
		for i := range t.rows {
			if !sameCode(t.cell(i, keyCode), voter.Code) {
				continue
			}
			rosterName := headers.NormalizeKey(t.cell(i, keyName))
			if rosterName != "" && wantName != "" && rosterName != wantName {
				continue
			}
			return true, nil
		}
	}
	return false, nil
}

// SubmitResponse records a voter's answers to the current definition of
// its group. A second submission for the same definition overwrites the
// first.
func (v *Votes) SubmitResponse(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	defs, _, err := v.loadDefinitions(ctx, false)
	if err != nil {
		return SubmitResult{}, err
	}
	d, ok := findDefinition(defs, in.DefinitionID)
	if !ok {
		return SubmitResult{}, notFoundError("DEFINITION_NOT_FOUND", fmt.Sprintf("definition %q not found", in.DefinitionID))
	}
	g, ok := v.catalog.Group(d.Group)
	if !ok {
		return SubmitResult{}, votingClosedError(d.Title)
	}
	current := latestFor(defs, g)
	if current == nil || current.ID != d.ID || !current.Active {
		return SubmitResult{}, votingClosedError(d.Title)
	}

	check, err := v.ValidateVoter(ctx, in.Identifier)
	if err != nil {
		return SubmitResult{}, err
	}
	if !check.OK {
		return SubmitResult{}, notAllowedError(check.Reason)
	}
	voter := check.Voter

	schema, err := v.ensureHeaders(ctx, v.responsesTable(), responseHeaders)
	if err != nil {
		return SubmitResult{}, err
	}
	responses, err := v.tables.loadFresh(ctx, nsVotes, v.responsesTable())
	if err != nil {
		return SubmitResult{}, err
	}

	sentAt, _ := v.timestamp()
	row := schema.RowFromRecord(map[string]string{
		keyCode:        voter.Code,
		keyIdentifier:  quoteIdentifier(voter.Identifier),
		keyName:        voter.Name,
		keyDefTitle:    d.Title,
		keyRespAnswers: survey.Encode(d.Questions, in.Answers, in.DurationMs),
		keyRespSentAt:  sentAt,
	})

	if i, found := findResponse(responses, voter.Code, d.Title); found {
		rng := sheets.RowRange(v.responsesTable(), i+firstDataRow, schema.Width()).String()
		if err := v.sheets.UpdateRange(ctx, rng, [][]string{row}); err != nil {
			return SubmitResult{}, storeError("update response", err)
		}
	} else {
		if err := v.sheets.AppendRow(ctx, sheets.TableRange(v.responsesTable()).String(), row); err != nil {
			return SubmitResult{}, storeError("append response", err)
		}
	}
	v.tables.invalidate(ctx, nsVotes, v.responsesTable())

	v.logger.Info("vote recorded", "definition", d.ID, "code", voter.Code)
	return SubmitResult{OK: true, VoterName: voter.Name}, nil
}

func findResponse(t table, code, title string) (int, bool) {
	for i := range t.rows {
		if sameCode(t.cell(i, keyCode), code) && strings.TrimSpace(t.cell(i, keyDefTitle)) == title {
			return i, true
		}
	}
	return 0, false
}

// GetResponse returns the voter's decoded answers for a definition, or nil
// when the voter has not answered.
func (v *Votes) GetResponse(ctx context.Context, definitionID, identifier string) (*StoredResponse, error) {
	defs, _, err := v.loadDefinitions(ctx, false)
	if err != nil {
		return nil, err
	}
	d, ok := findDefinition(defs, definitionID)
	if !ok {
		return nil, notFoundError("DEFINITION_NOT_FOUND", fmt.Sprintf("definition %q not found", definitionID))
	}
	rec, err := v.records.FindByIdentifier(ctx, v.catalog.Voting.VoterProfile, identifier)
	if err != nil || rec == nil {
		return nil, err
	}
	code := strings.TrimSpace(rec.Get(keyCode))
	if code == "" {
		return nil, nil
	}

	responses, exists, err := v.tables.loadOptional(ctx, nsVotes, v.responsesTable())
	if err != nil || !exists {
		return nil, err
	}
	i, found := findResponse(responses, code, d.Title)
	if !found {
		return nil, nil
	}
	decoded := survey.DecodeCell(d.Questions, responses.cell(i, keyRespAnswers))
	return &StoredResponse{
		Answers:     decoded.Answers,
		DurationMs:  decoded.DurationMs,
		SubmittedAt: responses.cell(i, keyRespSentAt),
	}, nil
}

// GetResults tallies every response recorded under the definition's title.
// The average duration only counts responses that reported one.
func (v *Votes) GetResults(ctx context.Context, definitionID string) (Results, error) {
	defs, _, err := v.loadDefinitions(ctx, false)
	if err != nil {
		return Results{}, err
	}
	d, ok := findDefinition(defs, definitionID)
	if !ok {
		return Results{}, notFoundError("DEFINITION_NOT_FOUND", fmt.Sprintf("definition %q not found", definitionID))
	}
	responses, _, err := v.tables.loadOptional(ctx, nsVotes, v.responsesTable())
	if err != nil {
		return Results{}, err
	}

	var (
		decoded []survey.Decoded
		sum     int64
		timed   int64
	)
	for i := range responses.rows {
		if strings.TrimSpace(responses.cell(i, keyDefTitle)) != d.Title {
			continue
		}
		r := survey.DecodeCell(d.Questions, responses.cell(i, keyRespAnswers))
		decoded = append(decoded, r)
		if r.DurationMs > 0 {
			sum += r.DurationMs
			timed++
		}
	}

	out := Results{
		DefinitionID: d.ID,
		Title:        d.Title,
		Total:        len(decoded),
		Questions:    survey.Tally(d.Questions, decoded),
	}
	if timed > 0 {
		out.AvgDurationMs = sum / timed
	}
	return out, nil
}

// ensureHeaders writes the default header row into an empty table and
// returns the table's schema.
func (v *Votes) ensureHeaders(ctx context.Context, name string, defaults []string) (headers.Schema, error) {
	schema, err := readSchema(ctx, v.sheets, name)
	if err != nil {
		return headers.Schema{}, err
	}
	if schema.Width() > 0 {
		return schema, nil
	}
	rng := sheets.RowRange(name, 1, len(defaults)).String()
	if err := v.sheets.UpdateRange(ctx, rng, [][]string{defaults}); err != nil {
		return headers.Schema{}, storeError("write headers of "+name, err)
	}
	v.tables.invalidate(ctx, nsVotes, name)
	return headers.NewSchema(defaults), nil
}
