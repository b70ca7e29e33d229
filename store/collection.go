package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mutena/fotomutena/models"
)

// Collection is an ordered list of records stored under one key.
type Collection struct {
	name string
	doc  *Document[[]models.Record]
	now  func() time.Time
}

// NewCollection binds a named collection to backend. fallback may be nil for an empty default.
func NewCollection(name string, backend Backend, fallback func() []models.Record) *Collection {
	if fallback == nil {
		fallback = func() []models.Record { return []models.Record{} }
	}
	return &Collection{
		name: name,
		doc:  NewDocument(backend, name, fallback, checkList),
		now:  time.Now,
	}
}

// Name is the collection name, also used as its backend key.
func (c *Collection) Name() string { return c.name }

// Items returns the current list, falling back to the default on read failure.
func (c *Collection) Items(ctx context.Context) Snapshot[[]models.Record] {
	return c.doc.Load(ctx)
}

// Add assigns a fresh id to rec, prepends it and persists the list.
func (c *Collection) Add(ctx context.Context, rec models.Record, ifMatch string) (models.Record, Snapshot[[]models.Record], error) {
	if strings.TrimSpace(rec.URL) == "" {
		return models.Record{}, Snapshot[[]models.Record]{}, fmt.Errorf("%w: url is required", ErrInvalid)
	}
	snap, err := c.doc.Update(ctx, ifMatch, func(current []models.Record) ([]models.Record, bool, error) {
		rec.ID = c.nextID(current)
		next := make([]models.Record, 0, len(current)+1)
		next = append(next, rec)
		next = append(next, current...)
		return next, true, nil
	})
	return rec, snap, err
}

// Remove drops the record with id, keeping the order of the others. Removing an
// unknown id leaves the store untouched and is not an error.
func (c *Collection) Remove(ctx context.Context, id string, ifMatch string) (Snapshot[[]models.Record], error) {
	return c.doc.Update(ctx, ifMatch, func(current []models.Record) ([]models.Record, bool, error) {
		next := make([]models.Record, 0, len(current))
		for _, r := range current {
			if r.ID != id {
				next = append(next, r)
			}
		}
		return next, len(next) != len(current), nil
	})
}

// Replace stores list verbatim after validating it. Used for reorder and inline edits.
func (c *Collection) Replace(ctx context.Context, list []models.Record, ifMatch string) (Snapshot[[]models.Record], error) {
	if err := checkRecords(list); err != nil {
		return Snapshot[[]models.Record]{}, err
	}
	return c.doc.Update(ctx, ifMatch, func([]models.Record) ([]models.Record, bool, error) {
		return list, true, nil
	})
}

// nextID derives an id from the current millisecond timestamp, stepping
// forward until it does not collide with an existing record.
func (c *Collection) nextID(current []models.Record) string {
	taken := make(map[string]struct{}, len(current))
	for _, r := range current {
		taken[r.ID] = struct{}{}
	}
	n := c.now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		n++
	}
}

func checkList(list []models.Record) error {
	if list == nil {
		return fmt.Errorf("%w: collection is not a list", ErrInvalid)
	}
	return nil
}

func checkRecords(list []models.Record) error {
	if err := checkList(list); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(list))
	for i, r := range list {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalid, i)
		}
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("%w: item %s has no url", ErrInvalid, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalid, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
