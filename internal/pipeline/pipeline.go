// Package pipeline runs a league directory through ingest, role resolution
// and aggregation.
//
// Ingest fans out one job per event log and isolates failures per match.
// Roles and aggregate are barrier stages: each starts only after the previous
// one finished for every match. A failing barrier stage is compensated by
// bounded retries; if it still fails, the stage is persisted so Resume can
// re-enter there without re-ingesting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"

	"github.com/pable/go-dota-metrics/internal/aggregator"
	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/eventlog"
	"github.com/pable/go-dota-metrics/internal/league"
	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/metrics"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/storage"
)

// LogExtensions are the file suffixes picked up from a league directory.
var LogExtensions = []string{".jsonl", ".jsonl.gz", ".jsonl.zst"}

// Opener decodes one event log.
type Opener func(ctx context.Context, path string, log logger.Logger) (*model.RawMatch, error)

// Mirror receives a copy of every aggregation result.
type Mirror interface {
	Mirror(ctx context.Context, leagueID int64, kind model.AggregateKind, rows []model.AggregateRow) error
}

// Store is everything the pipeline needs from storage.
type Store interface {
	league.Store
	MatchIDs(ctx context.Context) ([]int64, error)
	MatchExists(ctx context.Context, matchID int64) (bool, error)
	InsertMatch(ctx context.Context, m *model.MatchRecord) error
	GetMatch(ctx context.Context, matchID int64) (*model.MatchRecord, error)
	SaveResolution(ctx context.Context, matchID int64, assigned map[model.Slot]model.Role,
		metrics []model.MetricRow, cmps []model.Comparison) error
	MarkRoleError(ctx context.Context, matchID int64, msg string) error
	SetStage(ctx context.Context, rec model.StageRecord) error
	GetStage(ctx context.Context, leagueID int64) (model.StageRecord, error)
	Aggregates(ctx context.Context, leagueID int64, kind model.AggregateKind) ([]model.AggregateRow, error)
}

// Outcome is the result of ingesting one log file.
type Outcome struct {
	Path    string
	MatchID int64
	Status  string // metrics.StatusOK, StatusFailed or StatusSkipped
	Err     error
}

// Report summarises one pipeline run.
type Report struct {
	LeagueID     int64
	RunID        string
	Outcomes     []Outcome
	Undispatched int
	Resolved     int
	RoleErrors   map[int64]string
	Rows         map[model.AggregateKind]int
}

// Failed returns the outcomes of logs that could not be ingested.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == metrics.StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Pipeline drives league runs against a Store.
type Pipeline struct {
	store   Store
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager
	open    Opener
	mirror  Mirror

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// New returns a pipeline over store configured by cfg.
func New(store Store, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		cfg:     cfg,
		log:     logger.Get().Named("pipeline"),
		metrics: metrics.NewManager(),
		open:    eventlog.Open,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the state shared by the stages of one league run.
type run struct {
	rec    model.StageRecord
	report *Report
}

type stage struct {
	name model.Stage
	exec func(ctx context.Context, r *run) error
	// compensate runs between failed attempts. A nil hook means the stage is
	// not retried.
	compensate func(ctx context.Context, r *run, attempt int, err error) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{name: model.StageIngest, exec: p.ingest},
		{name: model.StageRoles, exec: p.resolve, compensate: p.backoff},
		{name: model.StageAggregate, exec: p.aggregate, compensate: p.backoff},
	}
}

// Run ingests every log in dir into leagueID, resolves roles and aggregates.
func (p *Pipeline) Run(ctx context.Context, leagueID int64, dir string) (*Report, error) {
	rec := model.StageRecord{LeagueID: leagueID, RunID: uuid.New().String(), Dir: dir, Stage: model.StageIngest}
	return p.execute(ctx, rec)
}

// Resume re-enters an unfinished run of leagueID at the stage it stopped in.
func (p *Pipeline) Resume(ctx context.Context, leagueID int64) (*Report, error) {
	rec, err := p.store.GetStage(ctx, leagueID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && rec.Stage == model.StageDone) {
		return nil, fmt.Errorf("league %d: %w", leagueID, ErrNothingToResume)
	}
	if err != nil {
		return nil, err
	}
	p.log.Info(ctx, "resuming league run",
		logger.Int64("league_id", leagueID),
		logger.String("run_id", rec.RunID),
		logger.String("stage", string(rec.Stage)),
	)
	return p.execute(ctx, rec)
}

// Aggregate recomputes the league aggregates from what is already stored.
func (p *Pipeline) Aggregate(ctx context.Context, leagueID int64) (*Report, error) {
	rec := model.StageRecord{LeagueID: leagueID, RunID: uuid.New().String(), Stage: model.StageAggregate}
	if prev, err := p.store.GetStage(ctx, leagueID); err == nil {
		rec.Dir = prev.Dir
	}
	return p.execute(ctx, rec)
}

func (p *Pipeline) execute(ctx context.Context, rec model.StageRecord) (*Report, error) {
	r := &run{
		rec: rec,
		report: &Report{
			LeagueID:   rec.LeagueID,
			RunID:      rec.RunID,
			RoleErrors: map[int64]string{},
			Rows:       map[model.AggregateKind]int{},
		},
	}
	log := p.log.With(logger.Int64("league_id", rec.LeagueID), logger.String("run_id", rec.RunID))

	started := false
	for _, st := range p.stages() {
		if !started && st.name != rec.Stage {
			continue
		}
		started = true
		if err := p.runStage(ctx, r, st, log); err != nil {
			return r.report, err
		}
	}
	if !started {
		return nil, fmt.Errorf("unknown stage %q", rec.Stage)
	}
	r.rec.Stage, r.rec.Status, r.rec.Error = model.StageDone, model.StatusDone, ""
	if err := p.persist(ctx, r.rec); err != nil {
		return r.report, err
	}
	p.writeMetrics(ctx)
	log.Info(ctx, "league run finished",
		logger.Int("logs", len(r.report.Outcomes)),
		logger.Int("resolved", r.report.Resolved),
		logger.Int("role_errors", len(r.report.RoleErrors)),
	)
	return r.report, nil
}

func (p *Pipeline) runStage(ctx context.Context, r *run, st stage, log logger.Logger) error {
	r.rec.Stage, r.rec.Status, r.rec.Error = st.name, model.StatusRunning, ""
	if err := p.persist(ctx, r.rec); err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := st.exec(ctx, r)
		p.metrics.ObserveStage(string(st.name), time.Since(start))
		if err == nil {
			log.Debug(ctx, "stage done", logger.String("stage", string(st.name)), logger.Int("attempt", attempt))
			return nil
		}

		retry := st.compensate != nil && ctx.Err() == nil && attempt < p.cfg.StageRetries
		if retry {
			log.Warn(ctx, "stage failed, compensating",
				logger.String("stage", string(st.name)),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			p.metrics.StageRetried(string(st.name))
			if cerr := st.compensate(ctx, r, attempt, err); cerr != nil {
				err = errors.Join(err, cerr)
				retry = false
			}
		}
		if retry {
			continue
		}

		r.rec.Status, r.rec.Error = model.StatusFailed, err.Error()
		if perr := p.persist(ctx, r.rec); perr != nil {
			log.Error(ctx, "persist failed stage", logger.Error(perr))
		}
		log.Error(ctx, "stage failed", logger.String("stage", string(st.name)), logger.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrStageFailed, st.name, err)
	}
}

// persist records stage progress even when ctx is already cancelled.
func (p *Pipeline) persist(ctx context.Context, rec model.StageRecord) error {
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := p.store.SetStage(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("persist stage %s: %w", rec.Stage, err)
	}
	return nil
}

// backoff waits RetryBackoff times the attempt number before the next try.
func (p *Pipeline) backoff(ctx context.Context, _ *run, attempt int, _ error) error {
	wait := p.cfg.RetryBackoff * time.Duration(attempt+1)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pipeline) writeMetrics(ctx context.Context) {
	if p.cfg.MetricsOut == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.cfg.MetricsOut); err != nil {
		p.log.Warn(ctx, "write metrics", logger.Error(err))
	}
}

// LogFiles lists the event logs directly inside dir, in name order.
func LogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read league dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, ext := range LogExtensions {
			if strings.HasSuffix(e.Name(), ext) {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return out, nil
}

// seed loads every stored match id into the ingested-match filter.
func (p *Pipeline) seed(ctx context.Context) error {
	ids, err := p.store.MatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("load match ids: %w", err)
	}
	n := uint(len(ids)) * 2
	if n < 1024 {
		n = 1024
	}
	f := bloom.NewWithEstimates(n, 0.001)
	for _, id := range ids {
		f.AddString(strconv.FormatInt(id, 10))
	}
	p.mu.Lock()
	p.seen = f
	p.mu.Unlock()
	return nil
}

// ingested reports whether matchID is already stored. The filter only
// short-circuits negatives; positives are confirmed against the store.
func (p *Pipeline) ingested(ctx context.Context, matchID int64) (bool, error) {
	p.mu.Lock()
	maybe := p.seen.TestString(strconv.FormatInt(matchID, 10))
	p.mu.Unlock()
	if !maybe {
		return false, nil
	}
	return p.store.MatchExists(ctx, matchID)
}

func (p *Pipeline) markIngested(matchID int64) {
	p.mu.Lock()
	p.seen.AddString(strconv.FormatInt(matchID, 10))
	p.mu.Unlock()
}

func (p *Pipeline) ingest(ctx context.Context, r *run) error {
	if r.rec.Dir == "" {
		return fmt.Errorf("no league directory recorded")
	}
	files, err := LogFiles(r.rec.Dir)
	if err != nil {
		return err
	}
	r.report.Undispatched = len(files)
	if err := p.seed(ctx); err != nil {
		return err
	}

	outcomes := make([]Outcome, len(files))
	var claimed sync.Map
	pool := NewPool("ingest", p.cfg.Workers, p.log)
	dispatched, err := pool.Run(ctx, len(files), func(ctx context.Context, i int) {
		outcomes[i] = p.ingestOne(ctx, r.rec.LeagueID, files[i], &claimed)
		p.metrics.MatchProcessed(outcomes[i].Status)
	})
	r.report.Outcomes = outcomes[:dispatched]
	r.report.Undispatched = len(files) - dispatched
	return err
}

func (p *Pipeline) ingestOne(ctx context.Context, leagueID int64, path string, claimed *sync.Map) Outcome {
	out := Outcome{Path: path, Status: metrics.StatusFailed}
	log := p.log.With(logger.String("path", path))

	raw, err := p.open(ctx, path, log)
	if err != nil {
		out.Err = err
		log.Warn(ctx, "decode failed", logger.Error(err))
		return out
	}
	out.MatchID = raw.MatchID
	p.metrics.SkippedRows(raw.SkippedRows)
	switch {
	case raw.LeagueID == 0:
		raw.LeagueID = leagueID
	case raw.LeagueID != leagueID:
		out.Err = fmt.Errorf("match %d belongs to league %d", raw.MatchID, raw.LeagueID)
		log.Warn(ctx, "foreign match", logger.MatchID(raw.MatchID), logger.Int64("league_id", raw.LeagueID))
		return out
	}

	if prev, dup := claimed.LoadOrStore(raw.MatchID, path); dup {
		out.Status = metrics.StatusSkipped
		log.Info(ctx, "duplicate log", logger.MatchID(raw.MatchID), logger.String("first", prev.(string)))
		return out
	}
	done, err := p.ingested(ctx, raw.MatchID)
	if err != nil {
		out.Err = err
		return out
	}
	if done {
		out.Status = metrics.StatusSkipped
		log.Debug(ctx, "already ingested", logger.MatchID(raw.MatchID))
		return out
	}

	m, err := aggregator.Ingest(ctx, raw, p.cfg.Catalog, log)
	if err != nil {
		out.Err = err
		log.Warn(ctx, "ingest failed", logger.MatchID(raw.MatchID), logger.Error(err))
		return out
	}
	if err := p.store.InsertMatch(ctx, m); err != nil {
		out.Err = err
		log.Error(ctx, "store match", logger.MatchID(raw.MatchID), logger.Error(err))
		return out
	}
	p.markIngested(raw.MatchID)
	out.Status = metrics.StatusOK
	return out
}

// resolve assigns roles for every unresolved match of the league. A match
// whose roles cannot be decided is marked and left out of aggregation; store
// errors fail the stage.
func (p *Pipeline) resolve(ctx context.Context, r *run) error {
	ids, err := p.store.LeagueMatchIDs(ctx, r.rec.LeagueID, false)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}

	var (
		mu       sync.Mutex
		errs     []error
		resolved int
	)
	pool := NewPool("roles", p.cfg.Workers, p.log)
	_, err = pool.Run(ctx, len(ids), func(ctx context.Context, i int) {
		ok, roleErr, err := p.resolveOne(ctx, ids[i])
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("match %d: %w", ids[i], err))
		case roleErr != "":
			r.report.RoleErrors[ids[i]] = roleErr
		case ok:
			resolved++
		}
	})
	r.report.Resolved += resolved
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) resolveOne(ctx context.Context, matchID int64) (bool, string, error) {
	m, err := p.store.GetMatch(ctx, matchID)
	if err != nil {
		return false, "", err
	}
	if m.Summary.RolesResolved {
		return false, "", nil
	}
	res, err := aggregator.Resolve(m, p.cfg.Catalog)
	if err != nil {
		p.log.Warn(ctx, "roles unresolved", logger.MatchID(matchID), logger.Error(err))
		if merr := p.store.MarkRoleError(ctx, matchID, err.Error()); merr != nil {
			return false, "", merr
		}
		return false, err.Error(), nil
	}
	if err := p.store.SaveResolution(ctx, matchID, res.Roles, res.Metrics, res.Comparisons); err != nil {
		return false, "", err
	}
	return true, "", nil
}

func (p *Pipeline) aggregate(ctx context.Context, r *run) error {
	for _, kind := range []model.AggregateKind{model.AggregatePlain, model.AggregateCross} {
		n, err := league.Run(ctx, p.store, p.cfg.Catalog, r.rec.LeagueID, kind, r.rec.RunID)
		if err != nil {
			return fmt.Errorf("%s aggregation: %w", kind, err)
		}
		r.report.Rows[kind] = n
		p.metrics.AggregateRows(string(kind), n)
		p.mirrorRows(ctx, r.rec.LeagueID, kind)
	}
	return nil
}

// mirrorRows copies stored aggregates to the mirror. Mirror failures are
// logged and never fail the stage.
func (p *Pipeline) mirrorRows(ctx context.Context, leagueID int64, kind model.AggregateKind) {
	if p.mirror == nil {
		return
	}
	rows, err := p.store.Aggregates(ctx, leagueID, kind)
	if err == nil {
		err = p.mirror.Mirror(ctx, leagueID, kind, rows)
	}
	if err != nil {
		p.log.Warn(ctx, "mirror aggregates", logger.String("kind", string(kind)), logger.Error(err))
	}
}
