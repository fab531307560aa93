package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TargetKind distinguishes the shapes of a transition target.
type TargetKind uint8

const (
	// TargetNext means the field was absent: continue with the next line.
	TargetNext TargetKind = iota
	// TargetEnd is an explicit null: the story ends here.
	TargetEnd
	// TargetScene jumps to a scene, optionally at a line index.
	TargetScene
)

// Target is where a line or choice sends playback next.
type Target struct {
	Kind  TargetKind
	Scene string
	Index int

	// object records that the target was written as {scene, index}.
	object bool
}

// JumpTo builds a scene target.
func JumpTo(scene string, index int) Target {
	return Target{Kind: TargetScene, Scene: scene, Index: index, object: index != 0}
}

// End is the explicit end-of-story target.
func End() Target {
	return Target{Kind: TargetEnd}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetEnd:
		return "end"
	case TargetScene:
		if t.Index != 0 {
			return fmt.Sprintf("%s#%d", t.Scene, t.Index)
		}
		return t.Scene
	default:
		return "next"
	}
}

// parseTarget decodes a present next field. Empty strings and objects without
// a scene are treated as absent.
func parseTarget(raw json.RawMessage) (Target, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return End(), nil
	}
	switch trimmed[0] {
	case '"':
		var scene string
		if err := json.Unmarshal(trimmed, &scene); err != nil {
			return Target{}, err
		}
		if scene == "" {
			return Target{}, nil
		}
		return Target{Kind: TargetScene, Scene: scene}, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Target{}, err
		}
		scene, err := decodeString(fields, "scene")
		if err != nil {
			return Target{}, err
		}
		if scene == "" {
			return Target{}, nil
		}
		target := Target{Kind: TargetScene, Scene: scene, object: true}
		if raw, ok := firstField(fields, "index"); ok {
			index, err := decodeInt(raw)
			if err != nil {
				return Target{}, fmt.Errorf("index: %w", err)
			}
			target.Index = index
		}
		return target, nil
	case 'f':
		return Target{}, nil
	default:
		return Target{}, fmt.Errorf("unsupported target %s", trimmed)
	}
}

// jsonValue returns the wire form of a present target.
func (t Target) jsonValue() any {
	switch t.Kind {
	case TargetEnd:
		return nil
	case TargetScene:
		if t.object || t.Index != 0 {
			return map[string]any{"scene": t.Scene, "index": t.Index}
		}
		return t.Scene
	default:
		return nil
	}
}
