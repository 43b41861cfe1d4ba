package friends

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"xfriends/models"
)

const meID = "me"

var errBoom = errors.New("boom")

// fakeRemote is an in-memory backend seen from the user meID.
type fakeRemote struct {
	mu sync.Mutex

	users    []models.SearchUser
	buckets  map[models.RequestType][]models.RelationshipRecord
	pageSize int

	failTypes map[models.RequestType]error
	searchErr error
	updateErr error

	// gates hold the next listing of a type until the channel is closed
	gates      map[models.RequestType]chan struct{}
	searchGate chan struct{}

	searches    []string
	getCalls    int
	updateCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		buckets:   make(map[models.RequestType][]models.RelationshipRecord),
		failTypes: make(map[models.RequestType]error),
		gates:     make(map[models.RequestType]chan struct{}),
	}
}

// gate holds the next GetFriends call for t until release is called.
func (f *fakeRemote) gate(t models.RequestType) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[t] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeRemote) addUser(id, nickname string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, models.SearchUser{
		UserID:        id,
		Nickname:      nickname,
		Avatar:        "/files/" + id + ".png",
		IsCurrentUser: id == meID,
	})
}

func (f *fakeRemote) relate(t models.RequestType, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relateLocked(t, id)
}

func (f *fakeRemote) relateLocked(t models.RequestType, id string) {
	nickname := id
	for _, u := range f.users {
		if u.UserID == id {
			nickname = u.Nickname
		}
	}
	f.buckets[t] = append(f.buckets[t], models.RelationshipRecord{
		User: models.RelationshipUser{
			UserID:   id,
			Nickname: nickname,
			Presence: models.PresenceOnline,
		},
	})
}

func (f *fakeRemote) unrelateLocked(t models.RequestType, id string) bool {
	recs := f.buckets[t]
	for i, r := range recs {
		if r.User.UserID == id {
			f.buckets[t] = append(recs[:i:i], recs[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeRemote) setFail(t models.RequestType, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failTypes, t)
		return
	}
	f.failTypes[t] = err
}

func (f *fakeRemote) searchLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeRemote) SearchUsers(ctx context.Context, nickname string, offset, limit int) (*models.SearchUsersResponse, error) {
	f.mu.Lock()
	f.searches = append(f.searches, nickname)
	gate := f.searchGate
	f.searchGate = nil
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	resp := &models.SearchUsersResponse{Offset: offset}
	for _, u := range f.users {
		if strings.Contains(u.Nickname, nickname) {
			resp.Users = append(resp.Users, u)
		}
	}
	resp.TotalCount = len(resp.Users)
	return resp, nil
}

func (f *fakeRemote) GetFriends(ctx context.Context, q models.FriendsQuery) (*models.FriendsResponse, error) {
	f.mu.Lock()
	gate := f.gates[q.Type]
	delete(f.gates, q.Type)
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err := f.failTypes[q.Type]; err != nil {
		return nil, err
	}
	recs := append([]models.RelationshipRecord(nil), f.buckets[q.Type]...)
	if f.pageSize <= 0 {
		return &models.FriendsResponse{Relationships: recs}, nil
	}

	start := 0
	if q.After != "" {
		start, _ = strconv.Atoi(q.After)
	}
	end := start + f.pageSize
	resp := &models.FriendsResponse{}
	if end < len(recs) {
		resp.NextAfter = strconv.Itoa(end)
	} else {
		end = len(recs)
	}
	if start < end {
		resp.Relationships = recs[start:end]
	}
	return resp, nil
}

func (f *fakeRemote) UpdateFriend(ctx context.Context, userID string, action models.FriendAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}

	switch action {
	case models.ActionBlock:
		f.unrelateLocked(models.TypeFriends, userID)
		f.unrelateLocked(models.TypeFriendRequested, userID)
		f.unrelateLocked(models.TypeFriendRequestedBy, userID)
		f.relateLocked(models.TypeBlocked, userID)
	case models.ActionUnblock:
		f.unrelateLocked(models.TypeBlocked, userID)
	case models.ActionRemove:
		f.unrelateLocked(models.TypeFriends, userID)
	case models.ActionRequestAdd:
		f.relateLocked(models.TypeFriendRequested, userID)
	case models.ActionRequestApprove:
		if f.unrelateLocked(models.TypeFriendRequestedBy, userID) {
			f.relateLocked(models.TypeFriends, userID)
		}
	}
	return nil
}
