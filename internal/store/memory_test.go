package store

import (
	"context"
	"sync"
	"testing"
)

func TestInMemoryLedger(t *testing.T) {
	testLedger(t, NewInMemoryLedger())
}

func TestNewestFirst(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  []int
	}{
		{"all", 0, []int{3, 2, 1}},
		{"negative is all", -1, []int{3, 2, 1}},
		{"limited", 2, []int{3, 2}},
		{"over", 10, []int{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newestFirst([]int{1, 2, 3}, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("newestFirst() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("newestFirst() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestInMemoryLedger_Concurrency(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.RecordRun(ctx, Run{Output: "x.csv"}); err != nil {
				t.Errorf("RecordRun() error = %v", err)
			}
			if _, err := l.Runs(ctx, 5); err != nil {
				t.Errorf("Runs() error = %v", err)
			}
		}()
	}
	wg.Wait()

	runs, _ := l.Runs(ctx, 0)
	if len(runs) != 50 {
		t.Errorf("Runs() = %d, want 50", len(runs))
	}
}
