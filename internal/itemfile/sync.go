package itemfile

import (
	"errors"
	"fmt"

	"github.com/smileynet/cubone/collection"
)

// Item is the live, pointer-identity model tracked by the collection.
// Reconciliation updates an Item in place so its identity survives edits.
type Item struct {
	Record
	fingerprint uint64
}

func newItem(r Record) *Item {
	return &Item{Record: r, fingerprint: r.Fingerprint()}
}

// Diff summarizes one reconciliation.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the reconciliation changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// String renders the diff as "+a ~c -r" counts.
func (d Diff) String() string {
	return fmt.Sprintf("+%d ~%d -%d", len(d.Added), len(d.Changed), len(d.Removed))
}

// Syncer owns a collection of items and reconciles it against snapshots of
// the item file. It is not safe for concurrent use.
type Syncer struct {
	items *collection.Collection[*Item]
	byID  map[string]*Item
}

// NewSyncer creates a syncer whose collection is seeded with records.
// Seeding does not emit events.
func NewSyncer(records []Record) *Syncer {
	s := &Syncer{byID: make(map[string]*Item, len(records))}
	seed := make([]*Item, 0, len(records))
	for _, r := range records {
		it := newItem(r)
		s.byID[r.ID] = it
		seed = append(seed, it)
	}
	s.items = collection.New(seed...)
	return s
}

// Collection returns the collection being kept in sync.
func (s *Syncer) Collection() *collection.Collection[*Item] {
	return s.items
}

// Lookup returns the live item with id.
func (s *Syncer) Lookup(id string) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

// Apply reconciles the collection with records: removals first, then
// in-place changes, then additions in file order. Only effective changes
// emit events. Listener errors are joined and returned along with the diff
// of everything that was applied.
func (s *Syncer) Apply(records []Record) (Diff, error) {
	var diff Diff
	var errs []error

	next := make(map[string]Record, len(records))
	for _, r := range records {
		next[r.ID] = r
	}

	for _, it := range s.items.Items() {
		if _, ok := next[it.ID]; ok {
			continue
		}
		delete(s.byID, it.ID)
		diff.Removed = append(diff.Removed, it.ID)
		errs = append(errs, s.items.Remove(it))
	}

	for _, r := range records {
		it, ok := s.byID[r.ID]
		if !ok {
			continue
		}
		fp := r.Fingerprint()
		if fp == it.fingerprint {
			continue
		}
		it.Record = r
		it.fingerprint = fp
		diff.Changed = append(diff.Changed, r.ID)
		errs = append(errs, s.items.Touch(it))
	}

	for _, r := range records {
		if _, ok := s.byID[r.ID]; ok {
			continue
		}
		it := newItem(r)
		s.byID[r.ID] = it
		diff.Added = append(diff.Added, r.ID)
		errs = append(errs, s.items.Add(it))
	}

	return diff, errors.Join(errs...)
}
