package timeline

import (
	"errors"
	"testing"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

func testCatalog(t *testing.T) config.Catalog {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	return cat
}

// feed sends one heartbeat per second over [from, to].
func feed(tl *Timeline, from, to int) {
	for s := from; s <= to; s++ {
		tl.Heartbeat(s)
	}
}

func TestMatchLengthBeforeCloseFails(t *testing.T) {
	tl := New(testCatalog(t), 0)
	feed(tl, 0, 30)
	if _, err := tl.MatchLength(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	tl.Close()
	n, err := tl.MatchLength()
	if err != nil || n != 30 {
		t.Fatalf("MatchLength = %d, %v; want 30", n, err)
	}
}

func TestFullLaneWindowsComplete(t *testing.T) {
	tl := New(testCatalog(t), 0)
	feed(tl, -90, 700)
	tl.Close()

	lane := tl.Windows(model.PhaseLane)
	for i, w := range lane {
		if !w.Exists || w.Incomplete {
			t.Errorf("lane_%d exists=%v incomplete=%v", i, w.Exists, w.Incomplete)
		}
		if w.Length != 120 || w.LengthMinutes != 2 {
			t.Errorf("lane_%d length=%d minutes=%d", i, w.Length, w.LengthMinutes)
		}
	}
	game := tl.Windows(model.PhaseGame)
	if !game[0].Exists || !game[0].Incomplete {
		t.Errorf("game_0 should exist and be incomplete: %+v", game[0])
	}
	if game[1].Exists {
		t.Error("game_1 should not exist")
	}
}

func TestWindowClipping(t *testing.T) {
	// The clock stops at T=1500, strictly inside game_1 [1200,1800).
	const end = 1500
	tl := New(testCatalog(t), 0)
	feed(tl, 0, end-1)
	tl.Close()

	w, err := tl.Window(model.Game1)
	if err != nil {
		t.Fatal(err)
	}
	if w.Length != end-1200 {
		t.Errorf("game_1 length = %d, want %d", w.Length, end-1200)
	}
	if w.Length < 0 || w.Length > w.Spec.Declared() {
		t.Errorf("length %d outside [0, %d]", w.Length, w.Spec.Declared())
	}
	if w.LengthMinutes != 5 {
		t.Errorf("length minutes = %d, want 5", w.LengthMinutes)
	}
	for _, f := range []model.Field{model.Game2, model.Game3, model.Game4} {
		if tl.Exists(f) {
			t.Errorf("%s should not exist", f)
		}
	}
}

func TestToleranceBoundary(t *testing.T) {
	cases := []struct {
		lastSecond     int
		wantIncomplete bool
	}{
		{117, false}, // length 118, off by 2
		{116, true},  // length 117, off by 3
	}
	for _, c := range cases {
		tl := New(testCatalog(t), 0)
		feed(tl, 0, c.lastSecond)
		tl.Close()
		if got := tl.Windows(model.PhaseLane)[0].Incomplete; got != c.wantIncomplete {
			t.Errorf("last=%d incomplete=%v, want %v", c.lastSecond, got, c.wantIncomplete)
		}
	}
}

func TestUnboundedWindowNeverIncomplete(t *testing.T) {
	tl := New(testCatalog(t), 0)
	feed(tl, 3590, 3700)
	tl.Close()
	w, _ := tl.Window(model.Game4)
	if !w.Exists || w.Incomplete {
		t.Errorf("game_4 = %+v", w)
	}
	if w.ObservedStart != 3600 || w.Length != 101 {
		t.Errorf("game_4 start=%d length=%d", w.ObservedStart, w.Length)
	}
}

func TestOriginShiftsClock(t *testing.T) {
	tl := New(testCatalog(t), 1000)
	feed(tl, 1000, 1119)
	tl.Close()
	f, ok := tl.Locate(1050)
	if !ok || f != model.Lane0 {
		t.Fatalf("Locate(1050) = %v, %v", f, ok)
	}
	if _, ok := tl.Locate(900); ok {
		t.Error("pre-horn time must not map to a window")
	}
	n, _ := tl.MatchLength()
	if n != 119 {
		t.Errorf("MatchLength = %d, want 119", n)
	}
}

func TestHeartbeatsAfterCloseIgnored(t *testing.T) {
	tl := New(testCatalog(t), 0)
	feed(tl, 0, 10)
	tl.Close()
	tl.Heartbeat(500)
	if n, _ := tl.MatchLength(); n != 10 {
		t.Errorf("MatchLength = %d after late heartbeat", n)
	}
}

type row struct{ t, v int }

func TestSplitByOffsetEndsAtFirstEmptyWindow(t *testing.T) {
	cat := testCatalog(t)
	rows := make([]int, 250) // seconds 0..249
	slices := SplitByOffset(rows, 0, cat.LaneWindows, cat.Tolerance)

	if len(slices[0].Rows) != 120 || slices[0].Incomplete {
		t.Errorf("lane_0 rows=%d incomplete=%v", len(slices[0].Rows), slices[0].Incomplete)
	}
	if len(slices[2].Rows) != 10 || !slices[2].Incomplete || slices[2].Length != 10 {
		t.Errorf("lane_2 rows=%d length=%d", len(slices[2].Rows), slices[2].Length)
	}
	for _, s := range slices[3:] {
		if s.Exists || len(s.Rows) != 0 {
			t.Errorf("%s should not exist", s.Spec.Name)
		}
	}
}

func TestSplitByOffsetPreGameRows(t *testing.T) {
	cat := testCatalog(t)
	rows := make([]int, 200) // seconds -90..109
	slices := SplitByOffset(rows, -90, cat.LaneWindows, cat.Tolerance)
	if slices[0].ObservedStart != 0 || slices[0].Length != 110 {
		t.Errorf("lane_0 start=%d length=%d", slices[0].ObservedStart, slices[0].Length)
	}
}

func TestSplitByTimeStopsAfterGap(t *testing.T) {
	cat := testCatalog(t)
	rows := []row{{5, 1}, {100, 2}, {130, 3}, {500, 4}}
	slices := SplitByTime(rows, func(r row) int { return r.t }, cat.LaneWindows, cat.Tolerance)

	if len(slices[0].Rows) != 2 || slices[0].Length != 96 {
		t.Errorf("lane_0 rows=%d length=%d", len(slices[0].Rows), slices[0].Length)
	}
	if len(slices[1].Rows) != 1 {
		t.Errorf("lane_1 rows=%d", len(slices[1].Rows))
	}
	// lane_2 is empty, so lane_4 is treated as past the end even though a row falls in it.
	if slices[2].Exists || slices[4].Exists {
		t.Error("windows after the first empty one must not exist")
	}
}
