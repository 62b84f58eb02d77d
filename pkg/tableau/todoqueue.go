package tableau

// Priority orders to-do entries so the engine processes the cheapest,
// most-constraining rules first: ⊥ before anything else (a clash found
// early prunes the rest of the round for free), then nominal/datatype
// entries, then ∃, then ∀, then number restrictions, matching the
// "partitioned ... so that ⊥, nominal and datatype entries are handled
// before ∃ which is handled before ∀ and so on" ordering in the design.
type Priority uint8

const (
	PriorityBottom Priority = iota
	PriorityNominal
	PriorityDatatype
	PriorityExists
	PriorityForall
	PriorityChoose
	PriorityCardinality
	PriorityOr
	priorityCount
)

// priorityFor maps a DAG vertex tag to its scheduling bucket.
func priorityFor(tag VertexTag, bp BP) Priority {
	switch tag {
	case TagNominal:
		return PriorityNominal
	case TagDatatype:
		return PriorityDatatype
	case TagExists:
		return PriorityExists
	case TagForall:
		return PriorityForall
	case TagGE, TagLE:
		return PriorityCardinality
	case TagOr:
		return PriorityOr
	default:
		if bp == BotBP {
			return PriorityBottom
		}
		return PriorityOr
	}
}

// TodoEntry identifies one concept in one node's label awaiting rule
// application.
type TodoEntry struct {
	Node   NodeID
	Offset int // index into the node's simple or complex label list
	Simple bool
	BP     BP
	Dep    DepSet // DepSet this entry's presence depends on
	Level  uint32 // branching level at which this entry was enqueued
}

// bucketSnapshot records a bucket's length at save time, for restore.
type bucketSnapshot [int(priorityCount)]int

// TodoQueue is the multi-bucket FIFO the engine drains in priority
// order. Offering an entry records it under its priority bucket at the
// current level; Save/Restore truncate buckets back to their saved
// lengths, exactly like the completion graph's label lists.
type TodoQueue struct {
	buckets  [priorityCount][]TodoEntry
	cursor   [priorityCount]int // next unconsumed index per bucket

	snapshots []bucketSnapshot
	curLevel  uint32
}

// NewTodoQueue returns an empty queue.
func NewTodoQueue() *TodoQueue { return &TodoQueue{} }

// Offer enqueues entry under the priority bucket of its tag.
func (q *TodoQueue) Offer(tag VertexTag, entry TodoEntry) {
	p := priorityFor(tag, entry.BP)
	q.buckets[p] = append(q.buckets[p], entry)
}

// NextEntry returns the highest-priority unconsumed entry and advances
// past it, or ok=false if the queue is drained.
func (q *TodoQueue) NextEntry() (entry TodoEntry, ok bool) {
	for p := Priority(0); p < priorityCount; p++ {
		if q.cursor[p] < len(q.buckets[p]) {
			entry = q.buckets[p][q.cursor[p]]
			q.cursor[p]++
			return entry, true
		}
	}
	return TodoEntry{}, false
}

// IsEmpty reports whether every bucket has been fully consumed.
func (q *TodoQueue) IsEmpty() bool {
	for p := Priority(0); p < priorityCount; p++ {
		if q.cursor[p] < len(q.buckets[p]) {
			return false
		}
	}
	return true
}

// Save pushes the current bucket lengths (not cursors — unblocking a
// node re-enqueues deferred entries at the tail, it never rewinds the
// cursor) and bumps the current level.
func (q *TodoQueue) Save() uint32 {
	q.curLevel++
	var snap bucketSnapshot
	for p := Priority(0); p < priorityCount; p++ {
		snap[p] = len(q.buckets[p])
	}
	q.snapshots = append(q.snapshots, snap)
	return q.curLevel
}

// Restore truncates every bucket back to its length at the save
// corresponding to level, and rewinds any cursor that now points past
// the truncated length.
func (q *TodoQueue) Restore(level uint32) {
	for q.curLevel > level && len(q.snapshots) > 0 {
		snap := q.snapshots[len(q.snapshots)-1]
		q.snapshots = q.snapshots[:len(q.snapshots)-1]
		for p := Priority(0); p < priorityCount; p++ {
			if snap[p] < len(q.buckets[p]) {
				q.buckets[p] = q.buckets[p][:snap[p]]
			}
			if q.cursor[p] > len(q.buckets[p]) {
				q.cursor[p] = len(q.buckets[p])
			}
		}
		q.curLevel--
	}
}

// Requeue re-offers entry (used when an unblocked node's deferred
// expansions need to run again); tag picks the bucket.
func (q *TodoQueue) Requeue(tag VertexTag, entry TodoEntry) { q.Offer(tag, entry) }
