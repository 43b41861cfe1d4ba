// Package friends keeps a user's relationship buckets in sync with the
// friends backend and classifies nickname search results against them.
//
// A Session is what a friends screen owns. It combines three parts:
//
//   - Debouncer delays a nickname search until the query has been quiet for
//     a fixed period (1s by default) and drops superseded queries, because
//     the search endpoint accepts one request per second.
//   - Partitioner loads the five relationship buckets (friends, requested,
//     requested-by, blocked, blocked-by) and filters search results: the
//     current user and blocked users are dropped, known users keep their
//     bucket's relationship.
//   - Reconciler sends a relationship change, waits for a full reload and
//     repeats the last search.
//
// Typical use:
//
//	s := friends.NewSession(remote, friends.Options{})
//	defer s.Close()
//	if err := s.Reload(ctx); err != nil { ... }
//	s.SetQuery("ali")
//	res := <-s.Results()
//
// The Remote interface is satisfied by client.Client.
package friends
