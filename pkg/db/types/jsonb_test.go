package dbtypes

import (
	"encoding/json"
	"testing"
)

func TestJSONBScanAndValue(t *testing.T) {
	var doc JSONB
	if err := doc.Scan([]byte(`{"1":[]}`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	value, err := doc.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if value != `{"1":[]}` {
		t.Fatalf("unexpected value %v", value)
	}

	if err := doc.Scan(`[]`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if string(doc) != `[]` {
		t.Fatalf("unexpected document %s", doc)
	}

	if err := doc.Scan(42); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestJSONBNullHandling(t *testing.T) {
	var doc JSONB
	if err := doc.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !doc.IsEmpty() {
		t.Fatalf("expected empty document")
	}
	value, err := doc.Value()
	if err != nil || value != nil {
		t.Fatalf("expected nil value, got %v (%v)", value, err)
	}
	if !JSONB("null").IsEmpty() {
		t.Fatalf("expected literal null to count as empty")
	}
	if _, err := JSONB("{broken").Value(); err == nil {
		t.Fatalf("expected invalid json to be rejected")
	}
}

func TestJSONBEmbedsRawInStructs(t *testing.T) {
	payload := struct {
		Drawers JSONB `json:"drawers"`
	}{Drawers: JSONB(`{"schemaVersion":"2.0.0"}`)}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"drawers":{"schemaVersion":"2.0.0"}}` {
		t.Fatalf("unexpected json %s", out)
	}

	var decoded struct {
		Drawers JSONB `json:"drawers"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded.Drawers) != `{"schemaVersion":"2.0.0"}` {
		t.Fatalf("unexpected drawers %s", decoded.Drawers)
	}
}
