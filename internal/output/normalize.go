package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TimeVaryingFields lists envelope fields that change between otherwise
// identical runs and are stripped before comparing responses in tests.
var TimeVaryingFields = []string{
	"meta.snapshotId",
	"meta.asOf",
	"meta.ageSeconds",
}

// NormalizeForComparison removes time-varying envelope fields and
// re-encodes deterministically.
func NormalizeForComparison(data []byte) ([]byte, error) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	for _, field := range TimeVaryingFields {
		removeNestedField(parsed, field)
	}

	return DeterministicEncode(parsed)
}

// CompareNormalized reports whether two responses are identical once
// time-varying fields are removed.
func CompareNormalized(a, b []byte) (bool, string) {
	normalizedA, err := NormalizeForComparison(a)
	if err != nil {
		return false, "failed to normalize response A: " + err.Error()
	}

	normalizedB, err := NormalizeForComparison(b)
	if err != nil {
		return false, "failed to normalize response B: " + err.Error()
	}

	if !bytes.Equal(normalizedA, normalizedB) {
		return false, "responses differ"
	}

	return true, ""
}

// removeNestedField removes a dot-separated field path from a decoded
// JSON object.
func removeNestedField(data map[string]any, path string) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return
	}

	current := data
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(map[string]any)
		if !ok {
			return
		}
		current = next
	}

	delete(current, parts[len(parts)-1])
}
