package memory

import (
	"context"
	"testing"

	"launchpad/internal/domain"
)

func TestScheduleAppendTake(t *testing.T) {
	ctx := context.Background()
	s := NewScheduleStore()

	s.Append(ctx, 100, 1)
	s.Append(ctx, 100, 2)
	s.Append(ctx, 200, 3)

	due, err := s.Take(ctx, 100)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(due) != 2 || due[0] != 1 || due[1] != 2 {
		t.Fatalf("due = %v, want [1 2]", due)
	}

	// Entries are consumed.
	due, _ = s.Take(ctx, 100)
	if len(due) != 0 {
		t.Errorf("second take = %v, want empty", due)
	}
	due, _ = s.Take(ctx, 200)
	if len(due) != 1 || due[0] != 3 {
		t.Errorf("due at 200 = %v, want [3]", due)
	}
}

func TestScheduleOverflowSpillsToNextBlock(t *testing.T) {
	ctx := context.Background()
	s := NewScheduleStore()

	for i := 0; i < domain.MaxTransitionsPerBlock; i++ {
		block, err := s.Append(ctx, 100, domain.ProjectID(i+1))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if block != 100 {
			t.Fatalf("entry %d landed on %d, want 100", i, block)
		}
	}

	block, err := s.Append(ctx, 100, 999)
	if err != nil {
		t.Fatalf("overflow append: %v", err)
	}
	if block != 101 {
		t.Errorf("overflow entry landed on %d, want 101", block)
	}

	due, _ := s.Take(ctx, 101)
	if len(due) != 1 || due[0] != 999 {
		t.Errorf("due at 101 = %v, want [999]", due)
	}
}

func TestScheduleRemoveProject(t *testing.T) {
	ctx := context.Background()
	s := NewScheduleStore()

	s.Append(ctx, 100, 1)
	s.Append(ctx, 100, 2)
	s.Append(ctx, 300, 1)

	if err := s.RemoveProject(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	due, _ := s.Take(ctx, 100)
	if len(due) != 1 || due[0] != 2 {
		t.Errorf("due at 100 = %v, want [2]", due)
	}
	due, _ = s.Take(ctx, 300)
	if len(due) != 0 {
		t.Errorf("due at 300 = %v, want empty", due)
	}
}

func TestSequenceMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewSequenceStore()

	for want := uint32(1); want <= 3; want++ {
		got, err := s.Next(ctx, "bids")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("next = %d, want %d", got, want)
		}
	}
	// Independent counters.
	if got, _ := s.Next(ctx, "evaluations"); got != 1 {
		t.Errorf("separate counter = %d, want 1", got)
	}
}
