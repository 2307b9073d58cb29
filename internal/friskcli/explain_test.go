package friskcli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"frisk/internal/core/explain"
	"frisk/internal/model"
)

func TestExplainJSON_Parseable(t *testing.T) {
	ex := NewExplainCollector(ExplainOptions{Format: "json"})
	ex.KV("match", "hello")
	stop := ex.Timer("search")
	stop()
	explain.RecordSummary(ex, model.Summary{Hits: 3, Outcome: model.OutcomeCompleted})

	var buf bytes.Buffer
	if err := ex.Emit(&buf); err != nil {
		t.Fatalf("emit: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if v["match"] != "hello" {
		t.Fatalf("match=%v", v["match"])
	}
	if _, ok := v["timings_ms"]; !ok {
		t.Fatalf("timings missing: %v", v)
	}
}

func TestExplainText(t *testing.T) {
	ex := NewExplainCollector(ExplainOptions{})
	ex.KV("b", 2)
	ex.KV("a", 1)
	var buf bytes.Buffer
	if err := ex.Emit(&buf); err != nil {
		t.Fatalf("emit: %v", err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, "explain:\n  a: 1\n  b: 2\n") {
		t.Fatalf("got %q", s)
	}
}

func TestExplainNilSafe(t *testing.T) {
	var ex *ExplainCollector
	ex.KV("a", 1)
	ex.Timer("x")()
	if err := ex.Emit(&bytes.Buffer{}); err != nil {
		t.Fatalf("emit: %v", err)
	}
}
