package engine

import (
	"cmp"
	"slices"
)

// compareEmergencies orders by priority, then creation time, then id
func compareEmergencies(a, b Emergency) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// pendingQueue holds unassigned emergencies in dispatch order
type pendingQueue struct {
	items []Emergency
}

func (q *pendingQueue) push(e Emergency) {
	i, _ := slices.BinarySearchFunc(q.items, e, compareEmergencies)
	q.items = slices.Insert(q.items, i, e)
}

// drain removes and returns every pending emergency in dispatch order
func (q *pendingQueue) drain() []Emergency {
	out := q.items
	q.items = nil
	slices.SortStableFunc(out, compareEmergencies)
	return out
}

// rebuild replaces the queue contents with the unassigned remainder
func (q *pendingQueue) rebuild(remaining []Emergency) {
	q.items = slices.Clone(remaining)
	slices.SortStableFunc(q.items, compareEmergencies)
}

func (q *pendingQueue) snapshot() []Emergency {
	out := make([]Emergency, len(q.items))
	copy(out, q.items)
	return out
}

func (q *pendingQueue) len() int {
	return len(q.items)
}

func (q *pendingQueue) contains(id int) bool {
	return slices.ContainsFunc(q.items, func(e Emergency) bool { return e.ID == id })
}
