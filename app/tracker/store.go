package tracker

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/go-pkgz/lgr"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Saver accepts full snapshots of the store after each mutation.
// Submit is called under the store lock, implementations must not block or call back into the store.
type Saver interface {
	Submit(entries []Entry)
}

// Options for NewStore, all fields optional
type Options struct {
	Saver          Saver                  // receives snapshot after every mutation
	OnStatusChange func(prev, curr Entry) // called outside of the lock after a successful status update
	Seed           []Entry                // entries used when nothing was persisted, DemoEntries if empty
}

// Store is the authoritative ordered list of entries, most recent first.
// All methods are thread safe.
type Store struct {
	mu          sync.RWMutex
	entries     []Entry
	initialized bool

	saver    Saver
	onStatus func(prev, curr Entry)
	seed     []Entry
	validate *validator.Validate
}

// newEntryReq is validated on Add, title and company trimmed for the check only
type newEntryReq struct {
	Title   string `validate:"required"`
	Company string `validate:"required"`
	Status  string `validate:"oneof=Wishlist Applied Interview Offer Rejected"`
}

// NewStore makes an empty, uninitialized store
func NewStore(opts Options) *Store {
	seed := opts.Seed
	if len(seed) == 0 {
		seed = DemoEntries()
	}
	return &Store{
		saver:    opts.Saver,
		onStatus: opts.OnStatusChange,
		seed:     seed,
		validate: validator.New(),
	}
}

// Initialize sets the store content once per store lifetime.
// If found is false the seed entries are used and persisted, otherwise loaded becomes the content as-is.
func (s *Store) Initialize(loaded []Entry, found bool) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initialized = true

	src := loaded
	if !found {
		src = s.seed
	}
	s.entries = make([]Entry, 0, len(src))
	for _, e := range src {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.entries = append(s.entries, e)
	}
	if !found {
		s.save() // seeded entries persisted right away
	}
	count := len(s.entries)
	s.mu.Unlock()

	if !found {
		log.Printf("[INFO] no saved jobs, seeded %d entries", count)
		return nil
	}
	log.Printf("[DEBUG] loaded %d entries", count)
	return nil
}

// Add inserts a new entry at the front. Empty status means StatusWishlist.
// Title and company are stored as given, blank ones are rejected.
func (s *Store) Add(title, company string, status Status) (Entry, error) {
	if status == "" {
		status = StatusWishlist
	}
	req := newEntryReq{Title: strings.TrimSpace(title), Company: strings.TrimSpace(company), Status: string(status)}
	if err := s.validate.Struct(req); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	entry := Entry{ID: uuid.NewString(), Title: title, Company: company, Status: status}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return Entry{}, ErrNotInitialized
	}
	s.entries = append([]Entry{entry}, s.entries...)
	s.save()
	s.mu.Unlock()

	log.Printf("[DEBUG] added %s", entry)
	return entry, nil
}

// UpdateStatus replaces the status of entry with given id, keeping its position.
// Status is not checked against the fixed set.
func (s *Store) UpdateStatus(id string, status Status) (Entry, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return Entry{}, ErrNotInitialized
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Entry{}, fmt.Errorf("can't update status of %s: %w", id, ErrNotFound)
	}
	prev := s.entries[idx]
	curr := Entry{ID: prev.ID, Title: prev.Title, Company: prev.Company, Status: status}
	s.entries[idx] = curr
	s.save()
	s.mu.Unlock()

	if !status.Known() {
		log.Printf("[WARN] status %q for %s is not one of %v", status, id, statuses)
	}
	log.Printf("[DEBUG] status of %q changed %s -> %s", prev.Title, prev.Status, curr.Status)
	if s.onStatus != nil {
		s.onStatus(prev, curr)
	}
	return curr, nil
}

// Delete removes entry with given id, returns false if it wasn't there.
// The snapshot is saved in both cases.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return false, ErrNotInitialized
	}
	idx := s.indexOf(id)
	if idx >= 0 {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	s.save()
	s.mu.Unlock()

	if idx < 0 {
		log.Printf("[DEBUG] nothing to delete for %s", id)
	}
	return idx >= 0, nil
}

// FilterAndSearch returns entries matching status filter and query, in store order.
// Filter FilterAll (or empty) keeps all statuses. Query is trimmed and matched
// case-insensitively as a substring of title or company; empty query matches everything.
func (s *Store) FilterAndSearch(filter, query string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.entries, filter, query)
}

// Filter applies status filter and query search to entries, see Store.FilterAndSearch
func Filter(entries []Entry, filter, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	res := []Entry{}
	for _, e := range entries {
		if filter != "" && filter != FilterAll && string(e.Status) != filter {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Company), q) {
			continue
		}
		res = append(res, e)
	}
	return res
}

// List returns a copy of all entries
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Get returns entry by id
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.entries[idx], true
	}
	return Entry{}, false
}

// At returns entry by 1-based position in the list
func (s *Store) At(pos int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 1 || pos > len(s.entries) {
		return Entry{}, fmt.Errorf("no entry at position %d of %d: %w", pos, len(s.entries), ErrNotFound)
	}
	return s.entries[pos-1], nil
}

// Len returns number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Counts returns number of entries per status. Every fixed status is present, even with zero count.
func (s *Store) Counts() map[Status]int {
	res := make(map[Status]int, len(statuses))
	for _, st := range statuses {
		res[st] = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		res[e.Status]++
	}
	return res
}

// indexOf finds entry position by id, must be called under lock
func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// snapshot copies entries, must be called under lock
func (s *Store) snapshot() []Entry {
	res := make([]Entry, len(s.entries))
	copy(res, s.entries)
	return res
}

// save submits current snapshot, must be called under lock to keep submit order equal to mutation order
func (s *Store) save() {
	if s.saver == nil {
		return
	}
	s.saver.Submit(s.snapshot())
}
