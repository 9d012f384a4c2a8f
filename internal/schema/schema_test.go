package schema

import (
	"testing"
	"time"
)

func validTaskRecord() Record {
	return Record{
		"task_id":      "SHARD-001-INIT",
		"title":        "Initialize repository",
		"status":       "pending",
		"priority":     "high",
		"contributors": []string{},
		"dependencies": []string{},
		"complexity":   5,
		"clearance":    2,
		"created_at":   time.Now(),
	}
}

func TestValidate_TaskOK(t *testing.T) {
	res := Validate(KindTask, validTaskRecord())
	if !res.OK() {
		t.Fatalf("expected pass, got %v", res.Details())
	}
	if res.Schema != KindTask {
		t.Fatalf("Schema = %q, want %q", res.Schema, KindTask)
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	rec := validTaskRecord()
	rec["task_id"] = "shard-1-x" // pattern
	rec["status"] = "archived"   // enum
	rec["complexity"] = 11       // bounds
	rec["clearance"] = 0         // bounds
	delete(rec, "title")         // required

	res := Validate(KindTask, rec)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 5 {
		t.Fatalf("got %d errors, want 5: %v", len(res.Errors), res.Details())
	}
}

func TestValidate_WrongTypeDoesNotPanic(t *testing.T) {
	rec := validTaskRecord()
	rec["complexity"] = "five"
	rec["contributors"] = 42

	res := Validate(KindTask, rec)
	if res.OK() {
		t.Fatal("expected failure")
	}
	for _, e := range res.Errors {
		if e.Rule != "type" {
			t.Fatalf("unexpected rule %q for %s", e.Rule, e.Field)
		}
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	res := Validate("mystery", Record{})
	if res.OK() {
		t.Fatal("expected failure for unknown kind")
	}
}

func TestValidate_TitleBounds(t *testing.T) {
	rec := validTaskRecord()
	rec["title"] = "abc"
	if res := Validate(KindTask, rec); res.OK() {
		t.Fatal("expected failure for short title")
	}
}

func TestValidate_AuditReportScoreBounds(t *testing.T) {
	rec := Record{
		"audit_id":  "AUDIT-20260823-SEC1",
		"target":    "internal/ledger",
		"score":     87.5,
		"coverage":  101.0,
		"clearance": 4,
	}
	res := Validate(KindAuditReport, rec)
	if res.OK() {
		t.Fatal("expected coverage bounds failure")
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "coverage" {
		t.Fatalf("errors = %v", res.Details())
	}

	rec["coverage"] = 92.0
	if res := Validate(KindAuditReport, rec); !res.OK() {
		t.Fatalf("expected pass, got %v", res.Details())
	}
}

func TestValidate_OptionalFieldsMayBeAbsent(t *testing.T) {
	rec := validTaskRecord()
	// owner, requires, description, target_completion all absent
	if res := Validate(KindTask, rec); !res.OK() {
		t.Fatalf("expected pass, got %v", res.Details())
	}
}

func TestValidate_PureNoMutation(t *testing.T) {
	rec := validTaskRecord()
	before := len(rec)
	Validate(KindTask, rec)
	if len(rec) != before {
		t.Fatal("validation mutated the record")
	}
}
