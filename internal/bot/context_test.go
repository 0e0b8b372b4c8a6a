package bot

import (
	"strconv"
	"sync"
	"testing"
)

func TestConversationContextEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	c := NewConversationContext(3)
	for i := 1; i <= 5; i++ {
		c.Add(ContextEntry{Sender: "u", Text: "msg" + strconv.Itoa(i)})
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	got := c.Snapshot()
	want := []string{"msg3", "msg4", "msg5"}
	for i, entry := range got {
		if entry.Text != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Text, want[i])
		}
	}
}

func TestConversationContextNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	c := NewConversationContext(4)
	for i := 0; i < 100; i++ {
		c.Add(ContextEntry{Text: strconv.Itoa(i)})
		if c.Len() > 4 {
			t.Fatalf("capacity exceeded after %d adds: %d", i+1, c.Len())
		}
	}
}

func TestConversationContextTail(t *testing.T) {
	t.Parallel()

	c := NewConversationContext(10)
	for i := 1; i <= 8; i++ {
		c.Add(ContextEntry{Text: strconv.Itoa(i)})
	}

	tail := c.Tail(3)
	if len(tail) != 3 {
		t.Fatalf("Tail(3) returned %d entries", len(tail))
	}
	for i, want := range []string{"6", "7", "8"} {
		if tail[i].Text != want {
			t.Errorf("tail[%d] = %q, want %q", i, tail[i].Text, want)
		}
	}

	if got := c.Tail(50); len(got) != 8 {
		t.Errorf("Tail(50) returned %d entries, want all 8", len(got))
	}
}

func TestConversationContextConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewConversationContext(16)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add(ContextEntry{Text: "x"})
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	if c.Len() != 16 {
		t.Errorf("Len = %d, want full capacity 16", c.Len())
	}
}
