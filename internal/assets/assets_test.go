package assets

import (
	"encoding/json"
	"testing"
)

func TestCatalog(t *testing.T) {
	if Drip.Spec().Cost != 25 || Drip.Spec().InitialStock != 2 {
		t.Fatalf("unexpected drip spec: %+v", Drip.Spec())
	}
	if !Solar.Spec().FarmWide || Compost.Spec().FarmWide {
		t.Fatalf("farm-wide flags wrong")
	}
	if Kind(0).Valid() || Kind(99).Valid() {
		t.Fatalf("out of range kinds should be invalid")
	}
	if len(All()) != 8 {
		t.Fatalf("expected 8 kinds got %d", len(All()))
	}
}

func TestParseAliases(t *testing.T) {
	cases := map[string]Kind{
		"drip":            Drip,
		"drip-irrigation": Drip,
		"Rainwater-Tank":  Rainwater,
		"asset-solar":     Solar,
		"mulching":        Mulch,
		"tree":            Trees,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := Parse("greenhouse"); err == nil {
		t.Fatalf("expected error for unknown asset")
	}
}

func TestSetOps(t *testing.T) {
	var s Set
	if !s.Empty() {
		t.Fatalf("zero set should be empty")
	}
	s = s.With(Drip).With(Mulch)
	if !s.Has(Drip) || !s.Has(Mulch) || s.Has(Compost) {
		t.Fatalf("unexpected membership: %v", s.Kinds())
	}
	s = s.Without(Drip)
	if s.Has(Drip) {
		t.Fatalf("drip should be removed")
	}

	b, err := json.Marshal(Set(0).With(Compost).With(Solar))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Set
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Has(Compost) || !back.Has(Solar) || back.Has(Drip) {
		t.Fatalf("set did not survive JSON: %s", b)
	}

	loaded := SetFromMap(map[string]bool{"drip": true, "mulch": false, "bogus": true})
	if !loaded.Has(Drip) || loaded.Has(Mulch) {
		t.Fatalf("SetFromMap should keep only true known keys: %v", loaded.Kinds())
	}
}

func TestWaterCost(t *testing.T) {
	cases := []struct {
		set  Set
		want int
	}{
		{0, 5},
		{Set(0).With(Drip), 2},
		{Set(0).With(Rainwater), 4},
		{Set(0).With(Drip).With(Rainwater), 1},
		{Set(0).With(Drip).With(Rainwater).With(Mulch), 1},
		{Set(0).With(Solar), 5},
	}
	for _, c := range cases {
		if got := c.set.WaterCost(5); got != c.want {
			t.Fatalf("WaterCost(%v) = %d want %d", c.set.Kinds(), got, c.want)
		}
	}
}

func TestStock(t *testing.T) {
	st := DefaultStock()
	if st[Drip] != 2 || st[Mulch] != 4 || st[Wind] != 4 {
		t.Fatalf("unexpected default stock: %v", st)
	}
	if !st.Take(Drip) || !st.Take(Drip) {
		t.Fatalf("expected two drip units")
	}
	if st.Take(Drip) {
		t.Fatalf("third take should fail")
	}
	st.Return(Drip)
	if st[Drip] != 1 {
		t.Fatalf("expected 1 drip after return got %d", st[Drip])
	}

	partial := Stock{Drip: -3}
	partial.Normalize()
	if partial[Drip] != 0 || partial[Compost] != 2 {
		t.Fatalf("normalize wrong: %v", partial)
	}
	if DefaultStock().Units() != 26 {
		t.Fatalf("expected 26 default units got %d", DefaultStock().Units())
	}
}

func TestCountFarmWide(t *testing.T) {
	gc := CountFarmWide([]Set{
		Set(0).With(Solar).With(Trees),
		Set(0).With(Solar),
		Set(0).With(Drip),
	})
	if gc.Solar != 2 || gc.Trees != 1 || gc.Wind != 0 {
		t.Fatalf("unexpected counts %+v", gc)
	}
}
