package scenario_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"novella/internal/scenario"
)

const sampleScenario = `{
  "meta": {
    "title": "Sample",
    "start": "intro",
    "slots": 2,
    "affection": {"haru": 5},
    "assets": {
      "BG1": "https://example.test/bg1.png",
      "backgrounds": {"room": "img/room.png"},
      "characters": {"haru": {"A1": "img/haru_a1.png"}}
    }
  },
  "characters": {
    "haru": {"name": "Haru", "expressions": {"A2": "img/haru_a2.png"}, "affection": 1},
    "miyu": {"name": "Miyu", "affection": 2}
  },
  "affection": {"haru": 3, "rin": 7},
  "scenes": {
    "intro": [
      {"ex": "----------"},
      {"bg": "BG1", "dark": true, "bgDuration": 1.5, "text": "Morning.", "speaker": "haru"},
      {"show": [{"slot": 0, "charId": "haru", "image": "A1", "scale": 0.9, "flip": true}]},
      {"char": "miyu", "text": "Hi", "aff": {"miyu": 1}, "next": {"scene": "branch", "index": 0}}
    ],
    "branch": [
      {"choices": [
        {"text": "Yes", "next": "end", "expression": {"haru": "A2"}, "affection": {"delta": {"haru": 2}}},
        {"text": "No", "next": null, "hide": true}
      ]}
    ],
    "end": [{"text": "Fin", "next": null, "hide": [0, 1], "expressions": [{"slot": 0, "expr": "A1"}]}]
  }
}`

func TestParseDecodesAliasesAndOrder(t *testing.T) {
	sc, err := scenario.Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := strings.Join(sc.SceneOrder, ","); got != "intro,branch,end" {
		t.Fatalf("unexpected scene order %q", got)
	}
	intro := sc.Scenes["intro"]
	if len(intro) != 4 {
		t.Fatalf("expected 4 intro lines, got %d", len(intro))
	}
	if !intro[0].Skip || intro[0].Renderable() {
		t.Fatalf("expected ex line to be skip-only: %#v", intro[0])
	}
	first := intro[1]
	if first.Background != "BG1" || !first.Dark || first.BackgroundDuration == nil || *first.BackgroundDuration != 1.5 {
		t.Fatalf("unexpected background effects: %#v", first.Effects)
	}
	if first.Speaker != "haru" || first.TextValue() != "Morning." {
		t.Fatalf("unexpected text line: %#v", first)
	}
	show := intro[2]
	if show.HasText() || show.HasChoices() || len(show.Show) != 1 {
		t.Fatalf("expected effect-only show line, got %#v", show)
	}
	if d := show.Show[0]; d.CharID != "haru" || d.Image != "A1" || !d.Flip || d.Scale == nil || *d.Scale != 0.9 {
		t.Fatalf("unexpected show directive: %#v", d)
	}
	last := intro[3]
	if last.Speaker != "miyu" {
		t.Fatalf("expected char alias to set speaker, got %q", last.Speaker)
	}
	if last.Affection == nil || last.Affection.Bare["miyu"] != 1 {
		t.Fatalf("expected aff alias to decode, got %#v", last.Affection)
	}
	if last.Next.Kind != scenario.TargetScene || last.Next.Scene != "branch" || last.Next.Index != 0 {
		t.Fatalf("unexpected next: %#v", last.Next)
	}

	choices := sc.Scenes["branch"][0].Choices
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
	if c := choices[0].Expressions.Changes; len(c) != 1 || c[0].CharID != "haru" || c[0].Expr != "A2" {
		t.Fatalf("unexpected expression object form: %#v", c)
	}
	if choices[1].Next.Kind != scenario.TargetEnd {
		t.Fatalf("expected explicit null next to be End, got %#v", choices[1].Next)
	}
	if choices[1].Hide == nil || !choices[1].Hide.All {
		t.Fatalf("expected hide:true to hide all, got %#v", choices[1].Hide)
	}

	end := sc.Scenes["end"][0]
	if end.Hide == nil || len(end.Hide.Slots) != 2 {
		t.Fatalf("unexpected hide list: %#v", end.Hide)
	}
	if c := end.Expressions.Changes; len(c) != 1 || c[0].Slot == nil || *c[0].Slot != 0 {
		t.Fatalf("expected expressions alias array form, got %#v", c)
	}
}

func TestParseArraySceneForm(t *testing.T) {
	doc := `{"meta":{"title":"x"},"scenes":[{"id":"b","lines":[{"text":"B"}]},{"id":"a","lines":[{"text":"A"}]}]}`
	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sc.StartScene() != "b" {
		t.Fatalf("expected first scene in array order to start, got %q", sc.StartScene())
	}
}

func TestParseRejectsMissingTopLevelFields(t *testing.T) {
	cases := map[string]string{
		"no meta":     `{"scenes":{}}`,
		"null meta":   `{"meta":null,"scenes":{}}`,
		"no scenes":   `{"meta":{"title":"x"}}`,
		"invalid doc": `{"meta":`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(doc))
			if !errors.Is(err, scenario.ErrInvalidScenario) {
				t.Fatalf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestTargetShapes(t *testing.T) {
	doc := `{"meta":{"title":"x"},"scenes":{"s":[
	  {"text":"absent"},
	  {"text":"string","next":"s"},
	  {"text":"object","next":{"scene":"s","index":2}},
	  {"text":"object no index","next":{"scene":"s"}},
	  {"text":"null","next":null},
	  {"text":"empty","next":""},
	  {"text":"no scene","next":{"index":3}}
	]}}`
	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []scenario.Target{
		{},
		scenario.JumpTo("s", 0),
		scenario.JumpTo("s", 2),
		scenario.JumpTo("s", 0),
		scenario.End(),
		{},
		{},
	}
	for i, line := range sc.Scenes["s"] {
		got := line.Next
		if got.Kind != want[i].Kind || got.Scene != want[i].Scene || got.Index != want[i].Index {
			t.Errorf("%s: got %v want %v", line.TextValue(), got, want[i])
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	sc, err := scenario.Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := json.Marshal(sc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := scenario.Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, data)
	}
	if strings.Join(again.SceneOrder, ",") != strings.Join(sc.SceneOrder, ",") {
		t.Fatalf("scene order lost: %v vs %v", again.SceneOrder, sc.SceneOrder)
	}
	if again.Scenes["end"][0].Next.Kind != scenario.TargetEnd {
		t.Fatal("explicit null next lost in round trip")
	}
	if again.Scenes["intro"][0].Skip != true {
		t.Fatal("skip marker lost in round trip")
	}
	if again.Scenes["intro"][3].Next.Scene != "branch" {
		t.Fatal("object next lost in round trip")
	}
	if again.Meta.Assets == nil || again.Meta.Assets.Flat["BG1"] == "" || again.Meta.Assets.Characters["haru"]["A1"] == "" {
		t.Fatalf("asset tables lost in round trip: %#v", again.Meta.Assets)
	}
	if c := again.Scenes["branch"][0].Choices[0].Expressions.Changes; len(c) != 1 || c[0].CharID != "haru" {
		t.Fatalf("expression object form lost: %#v", c)
	}
	if again.Scenes["branch"][0].Choices[0].Affection.Delta["haru"] != 2 {
		t.Fatal("choice affection lost in round trip")
	}
}

func TestAffectionSeedsPriority(t *testing.T) {
	sc, err := scenario.Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tiers := sc.AffectionSeeds()
	if len(tiers) != 4 {
		t.Fatalf("expected 4 tiers, got %d", len(tiers))
	}
	if tiers[0]["haru"] != 5 {
		t.Fatalf("meta tier: %#v", tiers[0])
	}
	if tiers[1]["rin"] != 7 {
		t.Fatalf("top-level tier: %#v", tiers[1])
	}
	if tiers[2]["miyu"] != 2 {
		t.Fatalf("inline tier: %#v", tiers[2])
	}
	if _, ok := tiers[3]["haru"]; !ok {
		t.Fatalf("zero tier missing haru: %#v", tiers[3])
	}
}

func TestSlotCountClamp(t *testing.T) {
	cases := map[int]int{0: 2, -3: 1, 1: 1, 4: 4, 9: 6}
	for in, want := range cases {
		sc := &scenario.Scenario{Meta: scenario.Meta{Slots: in}}
		if got := sc.SlotCount(); got != want {
			t.Errorf("SlotCount(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestValidateReportsRecoverableIssues(t *testing.T) {
	doc := `{"meta":{"title":"x","start":"missing","slots":2},
	  "characters":{"haru":{"name":"Haru"}},
	  "scenes":{
	    "a":[
	      {"text":"hi","speaker":"ghost","next":"nowhere"},
	      {},
	      {"show":[{"slot":5,"image":"A1"}]},
	      {"choices":[{"text":"","next":{"scene":"a","index":9}}]}
	    ],
	    "empty":[]
	  }}`
	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	issues := sc.Validate()
	if scenario.HasErrors(issues) {
		t.Fatalf("expected only warnings, got %v", issues)
	}
	var joined []string
	for _, issue := range issues {
		joined = append(joined, issue.String())
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		`start scene "missing" does not exist`,
		`speaker "ghost" is not in the cast`,
		`unknown scene "nowhere"`,
		"line has no text, choices or effects",
		"show slot 5 is clamped",
		"choice has no label",
		"next index 9 is outside scene",
		"scene has no lines",
	} {
		if !strings.Contains(all, want) {
			t.Errorf("expected issue %q in:\n%s", want, all)
		}
	}
}

func TestValidateNoScenesIsError(t *testing.T) {
	sc, err := scenario.Parse([]byte(`{"meta":{"title":"x"},"scenes":{}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !scenario.HasErrors(sc.Validate()) {
		t.Fatal("expected an error for a scenario without scenes")
	}
}

func TestMalformedLinesAreDroppedNotFatal(t *testing.T) {
	doc := `{"meta":{"title":"x","start":"a"},"scenes":{"a":[
	  {"text":5},
	  {"text":"shown","show":"haru"},
	  {"text":"jump","next":3},
	  {"text":"pick","choices":[{"text":"ok","affection":"lots"},"bare"]},
	  7,
	  {"text":"last"}
	]}}`
	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lines := sc.Scenes["a"]
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	if lines[0].HasText() {
		t.Fatalf("numeric text should be dropped, got %q", lines[0].TextValue())
	}
	if lines[1].TextValue() != "shown" || len(lines[1].Show) != 0 {
		t.Fatalf("string show should be dropped and text kept: %#v", lines[1])
	}
	if lines[2].Next.Kind != scenario.TargetNext {
		t.Fatalf("numeric next should read as absent, got %v", lines[2].Next)
	}
	if len(lines[3].Choices) != 1 || lines[3].Choices[0].Affection != nil {
		t.Fatalf("expected one choice without affection: %#v", lines[3].Choices)
	}

	issues := sc.Validate()
	if scenario.HasErrors(issues) {
		t.Fatalf("malformed lines must only warn, got %v", issues)
	}
	var joined []string
	for _, issue := range issues {
		joined = append(joined, issue.String())
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		"a[0]: ignored malformed field: text: expected string",
		"a[1]: ignored malformed field: show: expected array of directives",
		"a[2]: ignored malformed field: next: unsupported target 3",
		"a[3]: ignored malformed field: choice 1: expected object",
		"a[3] choice 0: ignored malformed field: affection:",
		"a[4]: ignored malformed field: line is not an object",
	} {
		if !strings.Contains(all, want) {
			t.Errorf("expected issue %q in:\n%s", want, all)
		}
	}
}
