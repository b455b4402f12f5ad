package output

import (
	"strings"
	"testing"
)

func TestNormalizeForComparison(t *testing.T) {
	input := []byte(`{
		"schemaVersion": "1.0",
		"data": {"key": "ENG"},
		"meta": {
			"generation": 1,
			"snapshotId": "4f9c2a10-9a1b-4c4d-8e2f-1a2b3c4d5e6f",
			"asOf": "2025-06-01T12:00:00Z",
			"ageSeconds": 42
		}
	}`)

	got, err := NormalizeForComparison(input)
	if err != nil {
		t.Fatalf("NormalizeForComparison: %v", err)
	}

	s := string(got)
	if strings.Contains(s, "snapshotId") || strings.Contains(s, "asOf") || strings.Contains(s, "ageSeconds") {
		t.Errorf("time-varying fields survived: %s", s)
	}
	if !strings.Contains(s, `"generation":1`) {
		t.Errorf("generation should survive: %s", s)
	}
	if !strings.Contains(s, `"key":"ENG"`) {
		t.Errorf("data should survive: %s", s)
	}
}

func TestCompareNormalized(t *testing.T) {
	a := []byte(`{"data":{"n":1},"meta":{"generation":1,"snapshotId":"aaa","asOf":"2025-06-01T12:00:00Z","ageSeconds":1}}`)
	b := []byte(`{"data":{"n":1},"meta":{"generation":1,"snapshotId":"bbb","asOf":"2025-06-02T08:30:00Z","ageSeconds":99}}`)
	c := []byte(`{"data":{"n":2},"meta":{"generation":1,"snapshotId":"aaa","asOf":"2025-06-01T12:00:00Z","ageSeconds":1}}`)

	if equal, msg := CompareNormalized(a, b); !equal {
		t.Errorf("a and b should match after normalization: %s", msg)
	}
	if equal, _ := CompareNormalized(a, c); equal {
		t.Error("a and c differ in data and should not match")
	}
}

func TestCompareNormalizedMalformed(t *testing.T) {
	if equal, msg := CompareNormalized([]byte(`{`), []byte(`{}`)); equal || msg == "" {
		t.Errorf("malformed input should fail with a message, got equal=%v msg=%q", equal, msg)
	}
}

func TestRemoveNestedFieldMissingPath(t *testing.T) {
	data := map[string]any{"data": map[string]any{"key": "v"}}
	// Paths through absent or non-object nodes are no-ops.
	removeNestedField(data, "meta.asOf")
	removeNestedField(data, "data.key.deeper")
	if data["data"].(map[string]any)["key"] != "v" {
		t.Error("unrelated fields should survive")
	}
}
