package affection_test

import (
	"encoding/json"
	"testing"

	"novella/internal/affection"
)

func mustSpec(t *testing.T, raw string) affection.Spec {
	t.Helper()
	var spec affection.Spec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		t.Fatalf("unmarshal spec %s: %v", raw, err)
	}
	return spec
}

func TestDeltaAccumulatesAndSetOverwrites(t *testing.T) {
	ledger := affection.NewLedger()
	delta := mustSpec(t, `{"delta":{"a":2}}`)

	ledger.Apply(delta)
	ledger.Apply(delta)
	if got, _ := ledger.Get("a"); got != 4 {
		t.Fatalf("expected a == 4 after two deltas, got %d", got)
	}

	ledger.Apply(mustSpec(t, `{"set":{"a":5}}`))
	if got, _ := ledger.Get("a"); got != 5 {
		t.Fatalf("expected set to overwrite to 5, got %d", got)
	}
}

func TestApplySetThenDeltaInSameSpec(t *testing.T) {
	ledger := affection.NewLedger()
	ledger.Initialize(map[string]int{"haru": 10})

	changes := ledger.Apply(mustSpec(t, `{"set":{"haru":1},"delta":{"haru":2},"haru":3}`))
	if got, _ := ledger.Get("haru"); got != 6 {
		t.Fatalf("expected set then delta then bare delta to give 6, got %d", got)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %#v", len(changes), changes)
	}
	if changes[0].From != 10 || changes[0].To != 1 {
		t.Fatalf("unexpected first change: %#v", changes[0])
	}
}

func TestBareEntriesAreDeltas(t *testing.T) {
	ledger := affection.NewLedger()
	ledger.Initialize(map[string]int{"miyu": 3})

	ledger.Apply(mustSpec(t, `{"miyu":-1,"new":"4"}`))
	if got, _ := ledger.Get("miyu"); got != 2 {
		t.Fatalf("expected miyu == 2, got %d", got)
	}
	got, ok := ledger.Get("new")
	if !ok || got != 4 {
		t.Fatalf("expected unknown id created with 4, got %d (present=%v)", got, ok)
	}
}

func TestCoercion(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`3`, 3},
		{`-2`, -2},
		{`2.9`, 2},
		{`-2.9`, -2},
		{`"7"`, 7},
		{`" 8.5 "`, 8},
		{`"abc"`, 0},
		{`true`, 0},
		{`null`, 0},
		{`{"x":1}`, 0},
		{`""`, 0},
	}
	for _, tc := range cases {
		if got := affection.Coerce(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("Coerce(%s) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestSetCoercesNonNumericToZero(t *testing.T) {
	ledger := affection.NewLedger()
	ledger.Initialize(map[string]int{"a": 9})

	ledger.Apply(mustSpec(t, `{"set":{"a":"lots"}}`))
	if got, _ := ledger.Get("a"); got != 0 {
		t.Fatalf("expected non-numeric set to coerce to 0, got %d", got)
	}
}

func TestInitializeFirstTierWins(t *testing.T) {
	ledger := affection.NewLedger()
	ledger.Initialize(
		map[string]int{"haru": 5},
		map[string]int{"haru": 1, "miyu": 2},
		map[string]int{"miyu": 9, "rin": 0},
	)
	want := map[string]int{"haru": 5, "miyu": 2, "rin": 0}
	got := ledger.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("unexpected snapshot: %#v", got)
	}
	for id, score := range want {
		if got[id] != score {
			t.Fatalf("%s: got %d want %d", id, got[id], score)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ledger := affection.NewLedger()
	ledger.Restore(map[string]int{"a": 3})

	snap := ledger.Snapshot()
	snap["a"] = 100
	if got, _ := ledger.Get("a"); got != 3 {
		t.Fatalf("snapshot mutation leaked into ledger: %d", got)
	}
}

func TestSpecMarshalRoundTrip(t *testing.T) {
	spec := mustSpec(t, `{"set":{"a":1},"delta":{"b":-2},"c":3}`)
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again := mustSpec(t, string(data))
	if again.Set["a"] != 1 || again.Delta["b"] != -2 || again.Bare["c"] != 3 {
		t.Fatalf("unexpected round trip: %s -> %#v", data, again)
	}
}
