package friends

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"xfriends/models"
)

const (
	DefaultPageLimit   = 50
	DefaultSearchLimit = 100
	searchOffset       = 0
)

// BucketError reports a failed load of one bucket. The bucket keeps its
// previous contents.
type BucketError struct {
	Relationship Relationship
	Err          error
}

func (e *BucketError) Error() string {
	return fmt.Sprintf("load %s bucket: %v", e.Relationship, e.Err)
}

func (e *BucketError) Unwrap() error {
	return e.Err
}

// Partitioner holds the five relationship buckets of the current user.
type Partitioner struct {
	remote      Remote
	pageLimit   int
	searchLimit int

	mu      sync.RWMutex
	buckets map[Relationship][]Entity
	// loadSeq numbers LoadAll calls; applied is the newest one swapped in.
	loadSeq uint64
	applied uint64
}

func NewPartitioner(remote Remote, pageLimit, searchLimit int) *Partitioner {
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Partitioner{
		remote:      remote,
		pageLimit:   pageLimit,
		searchLimit: searchLimit,
		buckets:     make(map[Relationship][]Entity, len(Bucketed)),
	}
}

// LoadAll fetches the five buckets concurrently and swaps every successful
// one in at once, so readers never see a half-applied reload. A failed
// bucket keeps its previous contents. A load that finishes after a newer
// one has been applied is discarded. The returned error joins one
// *BucketError per failed bucket.
func (p *Partitioner) LoadAll(ctx context.Context) error {
	p.mu.Lock()
	p.loadSeq++
	seq := p.loadSeq
	p.mu.Unlock()

	var g errgroup.Group
	loaded := make([][]Entity, len(Bucketed))
	errs := make([]error, len(Bucketed))

	for i, r := range Bucketed {
		g.Go(func() error {
			entities, err := p.fetchBucket(ctx, r)
			if err != nil {
				errs[i] = &BucketError{Relationship: r, Err: err}
				return nil
			}
			loaded[i] = entities
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	stale := seq < p.applied
	if !stale {
		for i, r := range Bucketed {
			if errs[i] == nil {
				p.buckets[r] = loaded[i]
			}
		}
		p.applied = seq
	}
	p.mu.Unlock()

	err := errors.Join(errs...)
	logrus.WithFields(logrus.Fields{
		"function": "Partitioner.LoadAll",
		"counts":   p.counts(),
		"failed":   err != nil,
		"stale":    stale,
	}).Debug("Relationship buckets loaded")
	return err
}

func (p *Partitioner) fetchBucket(ctx context.Context, r Relationship) ([]Entity, error) {
	q := models.FriendsQuery{
		Type:      r.RequestType(),
		SortBy:    models.SortByUpdated,
		SortOrder: models.SortAsc,
		Limit:     p.pageLimit,
	}

	entities := []Entity{}
	for {
		resp, err := p.remote.GetFriends(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, rec := range resp.Relationships {
			entities = append(entities, entityFromRecord(rec, r))
		}
		if resp.NextAfter == "" || resp.NextAfter == q.After || len(resp.Relationships) == 0 {
			return entities, nil
		}
		q.After = resp.NextAfter
	}
}

// Bucket returns a copy of the bucket for r.
func (p *Partitioner) Bucket(r Relationship) []Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Entity(nil), p.buckets[r]...)
}

// Lookup finds id in the buckets, checking them in Bucketed order.
func (p *Partitioner) Lookup(id string) (Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookupLocked(id)
}

func (p *Partitioner) lookupLocked(id string) (Entity, bool) {
	for _, r := range Bucketed {
		for _, e := range p.buckets[r] {
			if e.ID == id {
				return e, true
			}
		}
	}
	return Entity{}, false
}

// Classify turns search rows into entities. The current user and anyone in
// a hidden bucket are dropped, even if a failed reload left them in a
// visible bucket too. Users already in a bucket come back as that bucket's
// entity; everyone else is RelationshipNone. Input order is kept.
func (p *Partitioner) Classify(users []models.SearchUser) []Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Entity, 0, len(users))
	for _, u := range users {
		if u.IsCurrentUser || p.hiddenLocked(u.UserID) {
			continue
		}
		if known, ok := p.lookupLocked(u.UserID); ok {
			out = append(out, known)
			continue
		}
		out = append(out, entityFromSearch(u))
	}
	return out
}

func (p *Partitioner) hiddenLocked(id string) bool {
	for _, r := range Bucketed {
		if !r.Hidden() {
			continue
		}
		for _, e := range p.buckets[r] {
			if e.ID == id {
				return true
			}
		}
	}
	return false
}

// Search queries the backend and classifies the rows.
func (p *Partitioner) Search(ctx context.Context, query string) ([]Entity, error) {
	resp, err := p.remote.SearchUsers(ctx, query, searchOffset, p.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return p.Classify(resp.Users), nil
}

func (p *Partitioner) counts() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[string]int, len(p.buckets))
	for r, b := range p.buckets {
		counts[r.String()] = len(b)
	}
	return counts
}
