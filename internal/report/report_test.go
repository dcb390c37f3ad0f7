package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pable/go-dota-metrics/internal/model"
)

func sampleRows() []model.AggregateRow {
	var s model.Series
	s[model.Lane0] = model.Of(1.5)
	s[model.GameTotal] = model.Of(-2)
	return []model.AggregateRow{
		{LeagueID: 7, Kind: model.AggregatePlain, Source: "stats", Grouping: "hero", Key: "12", Metric: "gold.max", Matches: 2, SmallSample: true, Series: s},
		{LeagueID: 7, Kind: model.AggregateCross, Source: "perc", Grouping: "role", Key: "1:3", Archetype: "core", Metric: "xp.max", Matches: 5},
	}
}

func TestWriteAggregatesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAggregatesCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteAggregatesCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	header := lines[0]
	for _, col := range []string{"league_id", "kind", "key", "small_sample", "lane_0", "game_total"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing %s: %s", col, header)
		}
	}
	if !strings.Contains(lines[1], "gold.max") || !strings.Contains(lines[1], "1.5") || !strings.HasSuffix(lines[1], ",-2") {
		t.Errorf("row 1 = %s", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",,,,,,,,,,,") {
		t.Errorf("absent cells should be empty: %s", lines[2])
	}
}

func TestPrintAggregates(t *testing.T) {
	var buf bytes.Buffer
	PrintAggregates(&buf, sampleRows())
	out := buf.String()
	for _, want := range []string{"gold.max", "LOW", "OK", "core", "1.50", "-2.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintWindowsMarksIncomplete(t *testing.T) {
	var buf bytes.Buffer
	PrintWindows(&buf, []model.WindowInfo{
		{Field: model.Game1, Exists: true, Start: 1200, End: 1300, Length: 101, LengthMinutes: 2, Incomplete: true},
		{Field: model.Game2},
	})
	out := buf.String()
	if !strings.Contains(out, "game_1") || !strings.Contains(out, "*") || !strings.Contains(out, "no") {
		t.Errorf("windows table:\n%s", out)
	}
}
