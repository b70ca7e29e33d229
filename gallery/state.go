package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mutena/fotomutena/models"
)

// AllCategories is the pseudo category that disables filtering.
const AllCategories = "Hepsi"

// API is the part of Client the view state needs.
type API interface {
	List(ctx context.Context, collection string) ([]models.Record, error)
	Reorder(ctx context.Context, collection string, list []models.Record) (Result, error)
}

// State holds one fetched collection. Filtering is client side only and never
// changes what is stored.
type State struct {
	api        API
	collection string

	mu    sync.RWMutex
	items []models.Record
	dirty bool
}

func NewState(api API, collection string) *State {
	return &State{api: api, collection: collection}
}

// Refresh replaces the local list with the server's.
func (s *State) Refresh(ctx context.Context) error {
	list, err := s.api.List(ctx, s.collection)
	if err != nil {
		return err
	}
	s.Adopt(list)
	return nil
}

// Adopt applies the list a mutation returned.
func (s *State) Adopt(list []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]models.Record(nil), list...)
	s.dirty = false
}

// Items returns a copy of the current list.
func (s *State) Items() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Record(nil), s.items...)
}

// Filter returns the items of category in stored order. An empty category or
// AllCategories returns everything.
func (s *State) Filter(category string) []models.Record {
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategories {
		return s.Items()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Record{}
	for _, r := range s.items {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Categories lists distinct categories in first-seen order, prefixed by AllCategories.
func (s *State) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{AllCategories}
	seen := map[string]bool{AllCategories: true}
	for _, r := range s.items {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}

// Move shifts the item at from to position to, like a drag and drop.
func (s *State) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d -> %d out of range for %d items", from, to, n)
	}
	if from == to {
		return nil
	}
	item := s.items[from]
	rest := append(s.items[:from:from], s.items[from+1:]...)
	s.items = append(rest[:to:to], append([]models.Record{item}, rest[to:]...)...)
	s.dirty = true
	return nil
}

// Dirty reports whether local moves have not been committed yet.
func (s *State) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Commit stores the local order and adopts what the server answered.
func (s *State) Commit(ctx context.Context) (Result, error) {
	res, err := s.api.Reorder(ctx, s.collection, s.Items())
	if err != nil {
		return Result{}, err
	}
	s.Adopt(res.Items)
	return res, nil
}
