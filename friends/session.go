package friends

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"xfriends/models"
)

// DefaultSearchInterval matches the backend's search rate limit.
const DefaultSearchInterval = time.Second

// Options tunes a Session. Zero values select the defaults.
type Options struct {
	SearchDelay     time.Duration
	SearchMinLength int
	// SearchInterval is the minimum gap between two search requests.
	SearchInterval time.Duration
	PageLimit      int
	SearchLimit    int
	ReloadSettle   time.Duration
	// Events, when set, triggers a reconcile on every relationship_changed
	// event.
	Events <-chan models.Event
}

// SearchResult is one published search. A failed search has an empty
// Entities list and a non-nil Err.
type SearchResult struct {
	Query    string
	Entities []Entity
	Err      error
}

// Session is the state behind one friends screen.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	partitioner *Partitioner
	debouncer   *Debouncer
	reconciler  *Reconciler
	interval    time.Duration

	mu         sync.Mutex
	query      string
	searchSeq  uint64
	lastSearch time.Time

	results chan SearchResult
	errs    chan error
	wg      sync.WaitGroup
}

func NewSession(remote Remote, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		partitioner: NewPartitioner(remote, opts.PageLimit, opts.SearchLimit),
		interval:    opts.SearchInterval,
		results:     make(chan SearchResult, 1),
		errs:        make(chan error, 16),
	}
	if s.interval <= 0 {
		s.interval = DefaultSearchInterval
	}
	s.debouncer = NewDebouncer(opts.SearchDelay, opts.SearchMinLength, s.search)
	s.reconciler = NewReconciler(remote, s.partitioner, opts.ReloadSettle, s.rerunLastSearch)

	if opts.Events != nil {
		s.wg.Add(1)
		go s.watchEvents(opts.Events)
	}
	return s
}

// Results delivers search results, latest wins: an unread result is
// replaced by a newer one.
func (s *Session) Results() <-chan SearchResult {
	return s.results
}

// Errors delivers failures of background reloads triggered by events.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// SetQuery records the query and reports whether a search was scheduled.
// A scheduled search supersedes any in-flight one; a query too short to
// search only cancels the pending timer.
func (s *Session) SetQuery(query string) bool {
	s.mu.Lock()
	s.query = query
	if s.debouncer.Accepts(query) {
		s.searchSeq++
	}
	s.mu.Unlock()
	return s.debouncer.Update(query)
}

func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Reload replaces every bucket from the backend.
func (s *Session) Reload(ctx context.Context) error {
	return s.partitioner.LoadAll(ctx)
}

func (s *Session) Bucket(r Relationship) []Entity {
	return s.partitioner.Bucket(r)
}

func (s *Session) Lookup(id string) (Entity, bool) {
	return s.partitioner.Lookup(id)
}

// UpdateFriendship applies action to e, reloads and repeats the last
// search. A rejected action is returned and leaves all state untouched.
func (s *Session) UpdateFriendship(ctx context.Context, e Entity, action models.FriendAction) error {
	return s.reconciler.UpdateFriendship(ctx, e, action)
}

// Close stops the debouncer and the event watcher. Pending searches are
// dropped; the channels stay open.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) search(query string) {
	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	wait := time.Until(s.lastSearch.Add(s.interval))
	s.mu.Unlock()

	if wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-s.ctx.Done():
			t.Stop()
			return
		}
	}

	s.mu.Lock()
	if seq != s.searchSeq {
		s.mu.Unlock()
		return
	}
	s.lastSearch = time.Now()
	s.mu.Unlock()

	entities, err := s.partitioner.Search(s.ctx, query)

	s.mu.Lock()
	current := seq == s.searchSeq
	s.mu.Unlock()
	if !current || s.ctx.Err() != nil {
		return
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Session.search",
			"query":    query,
			"error":    err.Error(),
		}).Warn("Search failed")
		entities = []Entity{}
	}
	s.publish(SearchResult{Query: query, Entities: entities, Err: err})
}

func (s *Session) rerunLastSearch(_ context.Context) {
	query := s.Query()
	if strings.TrimSpace(query) == "" {
		return
	}
	s.debouncer.Cancel()
	s.search(query)
}

func (s *Session) publish(res SearchResult) {
	for {
		select {
		case s.results <- res:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}

func (s *Session) reportError(err error) {
	select {
	case s.errs <- err:
	default:
		logrus.WithError(err).Warn("session error dropped, nobody is reading Errors()")
	}
}

func (s *Session) watchEvents(events <-chan models.Event) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Event != models.EventRelationshipChanged {
				continue
			}
			if err := s.reconciler.Reconcile(s.ctx); err != nil && s.ctx.Err() == nil {
				s.reportError(err)
			}
		}
	}
}
