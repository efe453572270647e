package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	opRead  = "read"
	opWrite = "write"
)

// Store owns the product collection. Every call is a full read-modify-write
// of the slot under one lock, so callers observe calls in a single order.
//
// Persistence failures never reach the caller: an unreadable slot reads as an
// empty collection and a failed write is logged and otherwise ignored.
type Store struct {
	mu   sync.Mutex
	slot Slot
	log  *zap.Logger

	persistErrors *prometheus.CounterVec
}

// NewStore builds a store over slot. reg may be nil.
func NewStore(slot Slot, log *zap.Logger, reg *prometheus.Registry) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		slot: slot,
		log:  log,
		persistErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_persistence_errors_total",
				Help: "Catalog slot reads and writes that failed and were absorbed",
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(s.persistErrors)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.slot.Ping(ctx)
}

// GetAll returns every record, seeding the slot on first use.
func (s *Store) GetAll(ctx context.Context) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Search matches query case-insensitively against name, formula and CAS
// number. An empty query matches everything.
func (s *Store) Search(ctx context.Context, query string) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}

	out := make([]Product, 0, len(all))
	for _, p := range all {
		if p.matches(q) {
			out = append(out, p)
		}
	}
	return out
}

// Save upserts p. A record with an empty id gets a fresh one and is appended;
// a known id is replaced wholesale; an unknown non-empty id is appended as is.
// The stored record is returned.
func (s *Store) Save(ctx context.Context, p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.load(ctx)

	if p.ID == "" {
		p.ID = newID(products)
		products = append(products, p)
	} else if i := indexOf(products, p.ID); i >= 0 {
		products[i] = p
	} else {
		products = append(products, p)
	}

	s.persist(ctx, products)
	return p
}

// Replace stores p under id in one critical section. The stored image URL is
// kept; an unknown id is appended with the default image for p.Name.
func (s *Store) Replace(ctx context.Context, id string, p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.load(ctx)

	p.ID = id
	p.ImageURL = DefaultImageURL(p.Name)
	if i := indexOf(products, id); i >= 0 {
		if products[i].ImageURL != "" {
			p.ImageURL = products[i].ImageURL
		}
		products[i] = p
	} else {
		products = append(products, p)
	}

	s.persist(ctx, products)
	return p
}

// Delete removes the record with id. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.load(ctx)
	out := products[:0]
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}

	s.persist(ctx, out)
}

func (s *Store) load(ctx context.Context) []Product {
	data, err := s.slot.Read(ctx, StorageKey)
	if errors.Is(err, ErrSlotEmpty) || (err == nil && len(data) == 0) {
		seed := seedProducts()
		s.persist(ctx, seed)
		return seed
	}
	if err != nil {
		s.readFailed(err)
		return []Product{}
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		s.readFailed(err)
		return []Product{}
	}
	if products == nil {
		products = []Product{}
	}
	return products
}

func (s *Store) persist(ctx context.Context, products []Product) {
	data, err := json.Marshal(products)
	if err == nil {
		err = s.slot.Write(ctx, StorageKey, data)
	}
	if err != nil {
		s.persistErrors.WithLabelValues(opWrite).Inc()
		s.log.Error("persist products failed",
			zap.Error(&PersistenceWriteError{Key: StorageKey, Err: err}),
			zap.Int("count", len(products)),
		)
	}
}

func (s *Store) readFailed(err error) {
	s.persistErrors.WithLabelValues(opRead).Inc()
	s.log.Error("load products failed", zap.Error(&PersistenceReadError{Key: StorageKey, Err: err}))
}

func indexOf(products []Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func newID(existing []Product) string {
	for {
		id := "p_" + nextUUID()
		if indexOf(existing, id) < 0 {
			return id
		}
	}
}

func nextUUID() string {
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()
}
