package codec

import (
	"math/rand"
	"testing"

	"github.com/pable/go-dota-metrics/internal/model"
)

func TestBitsExample(t *testing.T) {
	flags := []bool{false, false, false, false, true, true, false}
	if got := Bits(flags); got != 6 {
		t.Fatalf("Bits = %d, want 6", got)
	}
	back := Flags(6, 7)
	for i := range flags {
		if back[i] != flags[i] {
			t.Fatalf("Flags(6, 7) = %v, want %v", back, flags)
		}
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 1; n <= 12; n++ {
		for iter := 0; iter < 50; iter++ {
			flags := make([]bool, n)
			for i := range flags {
				flags[i] = r.Intn(2) == 1
			}
			got := Flags(Bits(flags), n)
			for i := range flags {
				if got[i] != flags[i] {
					t.Fatalf("n=%d round trip %v -> %v", n, flags, got)
				}
			}
		}
	}
}

func TestEncodeZeroAbsentGroup(t *testing.T) {
	var s model.Series
	s[model.Lane4] = model.Of(0)
	s[model.LaneTotal] = model.Of(0)
	s[model.Game0] = model.Of(12)

	out, lane, game := Encode(s, DefaultEpsilon)
	if !lane.Valid || lane.Bits != 0b000011 {
		t.Errorf("lane mask = %+v, want 3", lane)
	}
	for f := model.Lane0; f <= model.LaneTotal; f++ {
		if out[f].Valid {
			t.Errorf("%s should be stored absent", f)
		}
	}
	if game.Valid {
		t.Error("game group has a non-zero value and must stay uncompressed")
	}
	if out[model.Game0] != model.Of(12) {
		t.Errorf("game_0 = %v", out[model.Game0])
	}

	back := Decode(out, lane, game)
	if back != s {
		t.Errorf("decode = %v, want %v", back, s)
	}
}

func TestEncodeTreatsTinyValuesAsZero(t *testing.T) {
	var s model.Series
	s[model.Game2] = model.Of(1e-12)
	_, _, game := Encode(s, DefaultEpsilon)
	if !game.Valid {
		t.Fatal("values within epsilon should compress")
	}
}

func TestAllAbsentGroupEncodesToZeroMask(t *testing.T) {
	out, lane, _ := Encode(model.Series{}, DefaultEpsilon)
	if !lane.Valid || lane.Bits != 0 {
		t.Errorf("lane mask = %+v", lane)
	}
	if Decode(out, lane, model.Mask{}) != (model.Series{}) {
		t.Error("all-absent group must decode to all absent")
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		var s model.Series
		for f := range s {
			switch r.Intn(3) {
			case 0:
				s[f] = model.Null
			case 1:
				s[f] = model.Of(0)
			default:
				if r.Intn(4) == 0 {
					s[f] = model.Of(float64(r.Intn(100) + 1))
				}
			}
		}
		out, lane, game := Encode(s, DefaultEpsilon)
		if got := Decode(out, lane, game); got != s {
			t.Fatalf("round trip %v -> %v", s, got)
		}
	}
}

func TestDecodeWithoutMaskIsIdentity(t *testing.T) {
	var s model.Series
	s[model.Lane1] = model.Of(4)
	if Decode(s, model.Mask{}, model.Mask{}) != s {
		t.Error("uncompressed series changed on decode")
	}
}
