package validate

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

func batchOf(n int, typ string) []parse.Message {
	msgs := make([]parse.Message, n)
	for i := range msgs {
		msgs[i] = parse.Message{
			UUID:      uuid.NewString(),
			SessionID: "11111111-2222-3333-4444-555555555555",
			Timestamp: time.Date(2026, 1, 2, 10, 0, i, 0, time.UTC).Format(time.RFC3339),
			Type:      typ,
		}
	}
	return msgs
}

func TestDuplicateAcrossBatchesIsFatal(t *testing.T) {
	v := New()
	b1 := batchOf(5, parse.TypeUser)

	res := v.Validate(b1)
	if !res.Valid {
		t.Fatalf("clean batch rejected: %+v", res)
	}
	v.AddMessages(b1)

	b2 := batchOf(5, parse.TypeUser)
	b2[2].UUID = b1[3].UUID // overlap with earlier batch

	res = v.Validate(b2)
	if res.Valid {
		t.Fatal("duplicate across batches must be fatal")
	}
	if res.Stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", res.Stats.Duplicates)
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], b1[3].UUID) {
		t.Errorf("error should name the uuid: %v", res.Errors)
	}
}

func TestDuplicateWithinBatchIsFatal(t *testing.T) {
	v := New()
	b := batchOf(4, parse.TypeUser)
	b[3].UUID = b[0].UUID

	res := v.Validate(b)
	if res.Valid {
		t.Fatal("duplicate within batch must be fatal")
	}
}

func TestRejectedBatchNotRecorded(t *testing.T) {
	v := New()
	b1 := batchOf(3, parse.TypeUser)
	v.AddMessages(b1)

	bad := batchOf(3, parse.TypeUser)
	bad[0].UUID = b1[0].UUID
	if res := v.Validate(bad); res.Valid {
		t.Fatal("expected rejection")
	}

	// caller refuses the merge, so the fresh uuids in the bad batch
	// must not poison later validations
	clean := []parse.Message{bad[1], bad[2]}
	if res := v.Validate(clean); !res.Valid {
		t.Errorf("unmerged batch leaked into running state: %+v", res)
	}
}

func TestTimestampInversionWarning(t *testing.T) {
	v := New()
	b := batchOf(10, parse.TypeUser)
	// swap enough timestamps to exceed the 10% threshold
	b[2].Timestamp, b[3].Timestamp = b[3].Timestamp, b[2].Timestamp
	b[6].Timestamp, b[7].Timestamp = b[7].Timestamp, b[6].Timestamp

	res := v.Validate(b)
	if !res.Valid {
		t.Fatal("inversions are non-fatal")
	}
	if res.Stats.Inversions < 2 {
		t.Fatalf("expected inversions counted, got %d", res.Stats.Inversions)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "timestamp order") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering warning, got %v", res.Warnings)
	}
}

func TestSingleInversionTolerated(t *testing.T) {
	v := New()
	b := batchOf(20, parse.TypeUser)
	b[4].Timestamp, b[5].Timestamp = b[5].Timestamp, b[4].Timestamp

	res := v.Validate(b)
	for _, w := range res.Warnings {
		if strings.Contains(w, "timestamp order") {
			t.Errorf("one inversion in twenty is within tolerance: %v", res.Warnings)
		}
	}
}

func TestAssistantOnlyBatchWarning(t *testing.T) {
	v := New()
	res := v.Validate(batchOf(5, parse.TypeAssistant))
	if !res.Valid {
		t.Fatal("assistant-only batch is non-fatal")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "no user messages") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected type-distribution warning, got %v", res.Warnings)
	}

	// an empty batch must not warn
	if res := v.Validate(nil); len(res.Warnings) != 0 {
		t.Errorf("empty batch warned: %v", res.Warnings)
	}
}

func TestSuspiciousIdentifiers(t *testing.T) {
	v := New()
	b := batchOf(3, parse.TypeUser)
	b[0].SessionID = parse.UnknownSession
	b[1].UUID = parse.SyntheticPrefix + uuid.NewString()
	b[2].UUID = "not-a-uuid"

	res := v.Validate(b)
	if !res.Valid {
		t.Fatal("suspicious identifiers are never fatal")
	}
	if res.Stats.Suspicious != 3 {
		t.Errorf("expected 3 suspicious ids, got %d (%v)", res.Stats.Suspicious, res.Warnings)
	}
}

func TestResetClearsRunningState(t *testing.T) {
	v := New()
	b := batchOf(5, parse.TypeUser)
	v.AddMessages(b)
	if v.SeenCount() != 5 {
		t.Fatalf("expected 5 seen, got %d", v.SeenCount())
	}

	v.Reset()
	if v.SeenCount() != 0 {
		t.Fatal("reset must clear seen uuids")
	}
	if res := v.Validate(b); !res.Valid {
		t.Error("after reset the same batch validates cleanly again")
	}
}

func TestStatsCountTypes(t *testing.T) {
	v := New()
	var b []parse.Message
	b = append(b, batchOf(2, parse.TypeUser)...)
	b = append(b, batchOf(3, parse.TypeAssistant)...)
	b = append(b, batchOf(1, parse.TypeSystem)...)
	b = append(b, batchOf(1, parse.TypeUnknown)...)

	res := v.Validate(b)
	want := Stats{Total: 7, User: 2, Assistant: 3, System: 1, Unknown: 1}
	got := res.Stats
	got.Inversions = 0 // interleaved fixture timestamps are not under test
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func ExampleValidator_Validate() {
	v := New()
	batch := []parse.Message{
		{UUID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301", SessionID: "3f2504e0-4f89-41d3-9a0c-0305e82c3302", Type: parse.TypeUser, Timestamp: "2026-01-02T10:00:00Z"},
	}
	res := v.Validate(batch)
	fmt.Println(res.Valid, res.Stats.Total)
	// Output: true 1
}
