package paginate

import "testing"

func TestPlanScenarios(t *testing.T) {
	tests := []struct {
		name                    string
		total, offset, pageSize int
		toLoad, start, end      int
		nextOffset              int
		hasMore                 bool
	}{
		{"first page of long session", 200, 0, 20, 20, 180, 200, 20, true},
		{"mid pagination", 300, 120, 20, 20, 160, 180, 140, true},
		{"partial final chunk", 150, 140, 20, 10, 0, 10, 150, false},
		{"offset overshoot", 50, 100, 20, 0, 0, 0, 100, false},
		{"exact boundary", 40, 20, 20, 20, 0, 20, 40, false},
		{"empty session", 0, 0, 20, 0, 0, 0, 0, false},
		{"offset equals total", 60, 60, 20, 0, 0, 0, 60, false},
		{"single message", 1, 0, 20, 1, 0, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Plan(tt.total, tt.offset, tt.pageSize)
			if w.ToLoad != tt.toLoad {
				t.Errorf("ToLoad = %d, want %d", w.ToLoad, tt.toLoad)
			}
			if w.Start != tt.start || w.End != tt.end {
				t.Errorf("window = [%d,%d), want [%d,%d)", w.Start, w.End, tt.start, tt.end)
			}
			if w.NextOffset != tt.nextOffset {
				t.Errorf("NextOffset = %d, want %d", w.NextOffset, tt.nextOffset)
			}
			if w.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", w.HasMore, tt.hasMore)
			}
		})
	}
}

func TestPlanProperties(t *testing.T) {
	for total := 0; total <= 120; total += 7 {
		for offset := 0; offset <= total; offset += 3 {
			w := Plan(total, offset, DefaultPageSize)
			if w.End-w.Start != w.ToLoad {
				t.Fatalf("total=%d offset=%d: window span %d != toLoad %d", total, offset, w.End-w.Start, w.ToLoad)
			}
			if w.ToLoad > DefaultPageSize {
				t.Fatalf("total=%d offset=%d: toLoad %d exceeds page size", total, offset, w.ToLoad)
			}
			if w.Start < 0 || w.End < 0 {
				t.Fatalf("total=%d offset=%d: negative indices [%d,%d)", total, offset, w.Start, w.End)
			}
		}
	}
}

func TestPlanOvershootNeverNegative(t *testing.T) {
	for _, offset := range []int{10, 50, 1000} {
		w := Plan(10, offset, 20)
		if w.ToLoad != 0 || w.Start != 0 || w.End != 0 {
			t.Errorf("offset=%d: expected empty window, got %+v", offset, w)
		}
	}
}

func TestPlanDefaultsOnBadInput(t *testing.T) {
	w := Plan(-5, -3, 0)
	if w.ToLoad != 0 || w.Start != 0 || w.End != 0 || w.HasMore {
		t.Errorf("negative inputs must clamp to empty window: %+v", w)
	}
	// pageSize <= 0 falls back to the default
	w = Plan(100, 0, -1)
	if w.ToLoad != DefaultPageSize {
		t.Errorf("expected default page size, got %d", w.ToLoad)
	}
}
