package tableau

import "testing"

func TestTodoQueueOfferAndNextEntryPriorityOrder(t *testing.T) {
	q := NewTodoQueue()
	q.Offer(TagOr, TodoEntry{BP: BP(1)})
	q.Offer(TagExists, TodoEntry{BP: BP(2)})
	q.Offer(TagNominal, TodoEntry{BP: BP(3)})

	entry, ok := q.NextEntry()
	if !ok || entry.BP != BP(3) {
		t.Fatalf("first entry = %v, ok=%v, want the nominal entry BP(3)", entry, ok)
	}
	entry, ok = q.NextEntry()
	if !ok || entry.BP != BP(2) {
		t.Fatalf("second entry = %v, ok=%v, want the exists entry BP(2)", entry, ok)
	}
	entry, ok = q.NextEntry()
	if !ok || entry.BP != BP(1) {
		t.Fatalf("third entry = %v, ok=%v, want the or entry BP(1)", entry, ok)
	}
	if _, ok := q.NextEntry(); ok {
		t.Fatalf("NextEntry on a drained queue returned ok=true")
	}
}

func TestTodoQueueBottomAlwaysFirst(t *testing.T) {
	q := NewTodoQueue()
	q.Offer(TagCName, TodoEntry{BP: BotBP})
	q.Offer(TagNominal, TodoEntry{BP: BP(1)})
	entry, ok := q.NextEntry()
	if !ok || entry.BP != BotBP {
		t.Fatalf("first entry = %v, ok=%v, want the bottom entry even though it was offered first under TagCName", entry, ok)
	}
}

func TestTodoQueueIsEmpty(t *testing.T) {
	q := NewTodoQueue()
	if !q.IsEmpty() {
		t.Fatalf("fresh queue is not empty")
	}
	q.Offer(TagExists, TodoEntry{BP: BP(1)})
	if q.IsEmpty() {
		t.Fatalf("queue with an offered entry reports empty")
	}
	q.NextEntry()
	if !q.IsEmpty() {
		t.Fatalf("queue with every entry consumed reports non-empty")
	}
}

func TestTodoQueueSaveRestoreTruncatesNewEntries(t *testing.T) {
	q := NewTodoQueue()
	q.Offer(TagExists, TodoEntry{BP: BP(1)})
	lvl := q.Save()
	q.Offer(TagExists, TodoEntry{BP: BP(2)})
	if q.IsEmpty() {
		t.Fatalf("queue unexpectedly empty before restore")
	}

	q.Restore(lvl - 1)
	entry, ok := q.NextEntry()
	if !ok || entry.BP != BP(1) {
		t.Fatalf("after restore, first entry = %v, ok=%v, want BP(1) only", entry, ok)
	}
	if _, ok := q.NextEntry(); ok {
		t.Fatalf("restore did not drop the entry offered after Save")
	}
}

func TestTodoQueueRestoreRewindsCursorPastTruncation(t *testing.T) {
	q := NewTodoQueue()
	q.Offer(TagExists, TodoEntry{BP: BP(1)})
	lvl := q.Save()
	q.Offer(TagExists, TodoEntry{BP: BP(2)})

	// Consume both entries before restoring; the cursor must be rewound
	// below the truncated bucket length, not left pointing past the end.
	q.NextEntry()
	q.NextEntry()

	q.Restore(lvl - 1)
	if !q.IsEmpty() {
		t.Fatalf("queue truncated back to one already-consumed entry must read as empty")
	}
}

func TestTodoQueueRequeueReoffersUnderTag(t *testing.T) {
	q := NewTodoQueue()
	entry := TodoEntry{BP: BP(5)}
	q.Requeue(TagNominal, entry)
	got, ok := q.NextEntry()
	if !ok || got.BP != entry.BP {
		t.Fatalf("Requeue did not make the entry available via NextEntry")
	}
}
