package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// problems collects per-field decode failures that do not reject a document.
type problems []string

func (p *problems) add(err error) {
	if err != nil {
		*p = append(*p, err.Error())
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// truthy mirrors how scenario authors use flags: true, non-empty strings,
// non-zero numbers, objects and arrays all count.
func truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return !bytes.Equal(trimmed, []byte(`""`))
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return false
		}
		return f != 0 && !math.IsNaN(f)
	}
}

// firstField returns the first present, non-null field among keys.
func firstField(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := fields[key]; ok && !isNull(raw) {
			return raw, true
		}
	}
	return nil, false
}

func decodeString(fields map[string]json.RawMessage, keys ...string) (string, error) {
	raw, ok := firstField(fields, keys...)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: expected string", keys[0])
	}
	return s, nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errors.New("expected number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("expected finite number")
	}
	return int(f), nil
}

func decodeFloat(fields map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := firstField(fields, key)
	if !ok {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: expected number", key)
	}
	return &f, nil
}

// decodeOrdered walks a JSON object preserving key order.
func decodeOrdered(raw json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("expected object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("expected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
