package scenario

import "fmt"

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding from Validate. Index is -1 for scenario-level issues;
// Choice is -1 unless the issue concerns a choice.
type Issue struct {
	Severity Severity
	Scene    string
	Index    int
	Choice   int
	Message  string
}

func (i Issue) String() string {
	switch {
	case i.Scene == "":
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	case i.Index < 0:
		return fmt.Sprintf("%s: scene %s: %s", i.Severity, i.Scene, i.Message)
	case i.Choice >= 0:
		return fmt.Sprintf("%s: %s[%d] choice %d: %s", i.Severity, i.Scene, i.Index, i.Choice, i.Message)
	default:
		return fmt.Sprintf("%s: %s[%d]: %s", i.Severity, i.Scene, i.Index, i.Message)
	}
}

// MaxChoices is how many options a choice line can present.
const MaxChoices = 4

// Validate reports recoverable problems: dangling scene references, lines with
// nothing to show, fields dropped while decoding, unknown speakers and
// out-of-range slots or target indexes.
func (s *Scenario) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, scene string, index, choice int, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: sev,
			Scene:    scene,
			Index:    index,
			Choice:   choice,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if len(s.Scenes) == 0 {
		add(SeverityError, "", -1, -1, "scenario has no scenes")
		return issues
	}
	if start := s.StartScene(); start != "" {
		if _, ok := s.Scenes[start]; !ok {
			add(SeverityWarning, "", -1, -1, "start scene %q does not exist", start)
		}
	}
	if s.Meta.Slots < 0 || s.Meta.Slots > maxSlots {
		add(SeverityWarning, "", -1, -1, "meta.slots %d is clamped to %d", s.Meta.Slots, s.SlotCount())
	}

	slots := s.SlotCount()
	checkTarget := func(scene string, index, choice int, t Target) {
		if t.Kind != TargetScene {
			return
		}
		lines, ok := s.Scenes[t.Scene]
		if !ok {
			add(SeverityWarning, scene, index, choice, "next references unknown scene %q", t.Scene)
			return
		}
		if t.Index < 0 || t.Index > len(lines) {
			add(SeverityWarning, scene, index, choice, "next index %d is outside scene %q (%d lines)", t.Index, t.Scene, len(lines))
		}
	}
	checkEffects := func(scene string, index, choice int, e Effects) {
		for _, show := range e.Show {
			if show.Slot < 0 || show.Slot >= slots {
				add(SeverityWarning, scene, index, choice, "show slot %d is clamped to [0,%d]", show.Slot, slots-1)
			}
			if show.Image == "" {
				add(SeverityWarning, scene, index, choice, "show directive for slot %d has no image", show.Slot)
			}
		}
		if e.Hide != nil {
			for _, slot := range e.Hide.Slots {
				if slot < 0 || slot >= slots {
					add(SeverityWarning, scene, index, choice, "hide slot %d is clamped to [0,%d]", slot, slots-1)
				}
			}
		}
		for _, change := range e.Expressions.Changes {
			if change.Slot == nil && change.CharID == "" {
				add(SeverityWarning, scene, index, choice, "expression change names neither slot nor character")
			}
		}
	}

	for _, id := range s.orderedSceneIDs() {
		lines := s.Scenes[id]
		if len(lines) == 0 {
			add(SeverityWarning, id, -1, -1, "scene has no lines")
			continue
		}
		for i, line := range lines {
			if line.Skip {
				continue
			}
			for _, m := range line.Malformed {
				add(SeverityWarning, id, i, -1, "ignored malformed field: %s", m)
			}
			if !line.HasText() && !line.HasChoices() && line.Effects.Empty() {
				add(SeverityWarning, id, i, -1, "line has no text, choices or effects")
			}
			if line.Speaker != "" {
				if _, ok := s.Characters[line.Speaker]; !ok {
					add(SeverityWarning, id, i, -1, "speaker %q is not in the cast", line.Speaker)
				}
			}
			if len(line.Choices) > MaxChoices {
				add(SeverityWarning, id, i, -1, "%d choices given, only the first %d are presented", len(line.Choices), MaxChoices)
			}
			checkTarget(id, i, -1, line.Next)
			checkEffects(id, i, -1, line.Effects)
			for c, choice := range line.Choices {
				for _, m := range choice.Malformed {
					add(SeverityWarning, id, i, c, "ignored malformed field: %s", m)
				}
				if choice.Text == "" {
					add(SeverityWarning, id, i, c, "choice has no label")
				}
				checkTarget(id, i, c, choice.Next)
				checkEffects(id, i, c, choice.Effects)
			}
		}
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
