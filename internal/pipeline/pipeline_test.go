package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/metrics"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/pipeline"
	"github.com/pable/go-dota-metrics/internal/storage"
)

const leagueID = 42

// badRoles is a match id whose roster carries an unusable role label.
const badRoles = 13

// flakyStore fails ReplaceAggregates while failures is positive.
type flakyStore struct {
	*storage.DB
	failures atomic.Int32
	calls    atomic.Int32
}

func (s *flakyStore) ReplaceAggregates(ctx context.Context, leagueID int64, kind model.AggregateKind, runID string,
	rows []model.AggregateRow, matchIDs []int64) error {
	s.calls.Add(1)
	if s.failures.Add(-1) >= 0 {
		return errors.New("disk full")
	}
	return s.DB.ReplaceAggregates(ctx, leagueID, kind, runID, rows, matchIDs)
}

// fakeOpener builds a synthetic match from the file name "<id>.jsonl".
type fakeOpener struct {
	count atomic.Int32
}

func (f *fakeOpener) open(_ context.Context, path string, _ logger.Logger) (*model.RawMatch, error) {
	f.count.Add(1)
	base := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	id, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	raw := &model.RawMatch{MatchID: id, SourceHash: base}
	for s := 0; s < model.NumSlots; s++ {
		role := model.Role(s%5 + 1)
		if id == badRoles && s == 0 {
			role = 9
		}
		raw.Players = append(raw.Players, model.RawPlayer{
			Slot: model.Slot(s), Unit: fmt.Sprintf("npc_dota_hero_h%d", s),
			AccountID: int64(1000 + s), HeroID: 10 + s, LaneRole: role,
		})
	}
	for t := 0; t <= 700; t++ {
		for s := 0; s < model.NumSlots; s++ {
			raw.Heartbeats = append(raw.Heartbeats, model.RawHeartbeat{
				Time: t, Slot: model.Slot(s), Gold: 600 + (s+1)*t, XP: (s + 1) * t, Level: 1,
			})
		}
	}
	return raw, nil
}

func writeLogs(dir string, names ...string) {
	for _, n := range names {
		So(os.WriteFile(filepath.Join(dir, n), []byte("{}\n"), 0o644), ShouldBeNil)
	}
}

func newConfig() *config.Config {
	cfg := config.New()
	cfg.Workers = 3
	cfg.StageRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestLogFiles(t *testing.T) {
	Convey("Given a league directory with mixed files", t, func() {
		dir := t.TempDir()
		writeLogs(dir, "2.jsonl", "1.jsonl.zst", "3.jsonl.gz", "notes.txt", "4.json")
		So(os.Mkdir(filepath.Join(dir, "5.jsonl"), 0o755), ShouldBeNil)

		Convey("Only event logs are listed, in name order", func() {
			files, err := pipeline.LogFiles(dir)
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{
				filepath.Join(dir, "1.jsonl.zst"),
				filepath.Join(dir, "2.jsonl"),
				filepath.Join(dir, "3.jsonl.gz"),
			})
		})
	})
}

func TestPipeline(t *testing.T) {
	Convey("Given a league directory and an empty store", t, func() {
		ctx := context.Background()
		db, err := storage.Open(":memory:")
		So(err, ShouldBeNil)
		defer db.Close()
		store := &flakyStore{DB: db}
		opener := &fakeOpener{}
		cfg := newConfig()
		m := metrics.NewManager()
		p := pipeline.New(store, cfg,
			pipeline.WithLogger(logger.Discard()),
			pipeline.WithMetrics(m),
			pipeline.WithOpener(opener.open),
		)

		dir := t.TempDir()
		writeLogs(dir, "1.jsonl", "2.jsonl", "3.jsonl", "13.jsonl", "broken.jsonl")

		Convey("When the league runs", func() {
			rep, err := p.Run(ctx, leagueID, dir)
			So(err, ShouldBeNil)

			Convey("Then a broken log fails alone", func() {
				So(len(rep.Outcomes), ShouldEqual, 5)
				failed := rep.Failed()
				So(len(failed), ShouldEqual, 1)
				So(failed[0].Path, ShouldEndWith, "broken.jsonl")
				ids, err := db.LeagueMatchIDs(ctx, leagueID, false)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []int64{1, 2, 3, 13})
				stored, err := db.GetMatch(ctx, 1)
				So(err, ShouldBeNil)
				_, err = time.Parse(time.RFC3339, stored.Summary.IngestedAt)
				So(err, ShouldBeNil)
			})

			Convey("Then an unresolvable roster is recorded and left out", func() {
				So(rep.Resolved, ShouldEqual, 3)
				So(rep.RoleErrors, ShouldContainKey, int64(badRoles))
				bad, err := db.GetMatch(ctx, badRoles)
				So(err, ShouldBeNil)
				So(bad.Summary.RolesResolved, ShouldBeFalse)
				So(bad.Summary.RoleError, ShouldNotBeEmpty)
				refs, err := db.RunIDs(ctx, leagueID, model.AggregatePlain)
				So(err, ShouldBeNil)
				So(refs, ShouldNotContainKey, int64(badRoles))
				So(refs[1], ShouldEqual, rep.RunID)
			})

			Convey("Then both aggregate kinds are written and the run is done", func() {
				So(rep.Rows[model.AggregatePlain], ShouldBeGreaterThan, 0)
				So(rep.Rows[model.AggregateCross], ShouldBeGreaterThan, 0)
				cross, err := db.RunIDs(ctx, leagueID, model.AggregateCross)
				So(err, ShouldBeNil)
				So(cross[1], ShouldEqual, rep.RunID)
				rec, err := db.GetStage(ctx, leagueID)
				So(err, ShouldBeNil)
				So(rec.Stage, ShouldEqual, model.StageDone)
				So(rec.RunID, ShouldEqual, rep.RunID)
			})

			Convey("And a second run skips every stored match", func() {
				again, err := p.Run(ctx, leagueID, dir)
				So(err, ShouldBeNil)
				skipped := 0
				for _, o := range again.Outcomes {
					if o.Status == metrics.StatusSkipped {
						skipped++
					}
				}
				So(skipped, ShouldEqual, 4)
				So(again.RunID, ShouldNotEqual, rep.RunID)
			})
		})

		Convey("When aggregation fails once", func() {
			store.failures.Store(1)
			rep, err := p.Run(ctx, leagueID, dir)

			Convey("Then the compensating retry completes the run", func() {
				So(err, ShouldBeNil)
				So(rep.Rows[model.AggregatePlain], ShouldBeGreaterThan, 0)
				So(store.calls.Load(), ShouldEqual, int32(3))
			})
		})

		Convey("When aggregation keeps failing", func() {
			store.failures.Store(100)
			_, err := p.Run(ctx, leagueID, dir)

			Convey("Then the stage is parked as failed", func() {
				So(errors.Is(err, pipeline.ErrStageFailed), ShouldBeTrue)
				So(store.calls.Load(), ShouldEqual, int32(cfg.StageRetries+1))
				rec, err := db.GetStage(ctx, leagueID)
				So(err, ShouldBeNil)
				So(rec.Stage, ShouldEqual, model.StageAggregate)
				So(rec.Status, ShouldEqual, model.StatusFailed)
				So(rec.Error, ShouldContainSubstring, "disk full")
			})

			Convey("And resume finishes it without re-ingesting", func() {
				opened := opener.count.Load()
				store.failures.Store(0)
				rep, err := p.Resume(ctx, leagueID)
				So(err, ShouldBeNil)
				So(opener.count.Load(), ShouldEqual, opened)
				So(len(rep.Outcomes), ShouldEqual, 0)
				So(rep.Rows[model.AggregatePlain], ShouldBeGreaterThan, 0)

				_, err = p.Resume(ctx, leagueID)
				So(errors.Is(err, pipeline.ErrNothingToResume), ShouldBeTrue)
			})
		})

		Convey("When the run is cancelled before any work is queued", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			rep, err := p.Run(cctx, leagueID, dir)

			Convey("Then nothing is ingested and the ingest stage is parked", func() {
				So(errors.Is(err, pipeline.ErrStageFailed), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(rep.Undispatched, ShouldEqual, 5)
				So(opener.count.Load(), ShouldEqual, int32(0))
				rec, err := db.GetStage(ctx, leagueID)
				So(err, ShouldBeNil)
				So(rec.Stage, ShouldEqual, model.StageIngest)
				So(rec.Dir, ShouldEqual, dir)
			})

			Convey("And resume ingests the whole directory", func() {
				rep, err := p.Resume(ctx, leagueID)
				So(err, ShouldBeNil)
				So(len(rep.Outcomes), ShouldEqual, 5)
				So(rep.Resolved, ShouldEqual, 3)
			})
		})

		Convey("When nothing was ever run", func() {
			_, err := p.Resume(ctx, leagueID)
			So(errors.Is(err, pipeline.ErrNothingToResume), ShouldBeTrue)
		})
	})
}

func TestPoolStopsDispatchOnCancel(t *testing.T) {
	Convey("Given a pool with one worker", t, func() {
		pool := pipeline.NewPool("test", 1, logger.Discard())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("When the first job cancels the run", func() {
			var ran atomic.Int32
			var sawCancel atomic.Bool
			n, err := pool.Run(ctx, 10, func(jctx context.Context, i int) {
				ran.Add(1)
				if i == 0 {
					cancel()
					sawCancel.Store(jctx.Err() != nil)
				}
			})

			Convey("Then in-flight work finishes and no more is queued", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(sawCancel.Load(), ShouldBeFalse)
				So(n, ShouldBeLessThan, 10)
				So(ran.Load(), ShouldEqual, int32(n))
			})
		})
	})
}
