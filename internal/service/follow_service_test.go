package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubTargetResolver struct {
	users []*model.User
}

func (s *stubTargetResolver) ResolveByHandle(_ context.Context, handle string) (*model.User, error) {
	h := strings.ToLower(strings.TrimSpace(handle))
	for _, u := range s.users {
		if strings.ToLower(u.Username) == h || strings.ToLower(u.Name) == h {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubFollowStore struct {
	edges          map[[2]uint64]bool
	followerCount  map[uint64]int64
	followingCount map[uint64]int64
	writeCalls     int
	writeErr       error
}

func newStubFollowStore() *stubFollowStore {
	return &stubFollowStore{
		edges:          map[[2]uint64]bool{},
		followerCount:  map[uint64]int64{},
		followingCount: map[uint64]int64{},
	}
}

func (s *stubFollowStore) Follow(_ context.Context, followerID, followeeID uint64) (bool, error) {
	s.writeCalls++
	if s.writeErr != nil {
		return false, s.writeErr
	}
	k := [2]uint64{followerID, followeeID}
	if s.edges[k] {
		return false, nil
	}
	s.edges[k] = true
	s.followerCount[followeeID]++
	s.followingCount[followerID]++
	return true, nil
}

func (s *stubFollowStore) Unfollow(_ context.Context, followerID, followeeID uint64) (bool, error) {
	s.writeCalls++
	if s.writeErr != nil {
		return false, s.writeErr
	}
	k := [2]uint64{followerID, followeeID}
	if !s.edges[k] {
		return false, nil
	}
	delete(s.edges, k)
	s.followerCount[followeeID]--
	s.followingCount[followerID]--
	return true, nil
}

func (s *stubFollowStore) IsFollowing(_ context.Context, followerID, followeeID uint64) (bool, error) {
	return s.edges[[2]uint64{followerID, followeeID}], nil
}

func (s *stubFollowStore) ListFollowings(context.Context, uint64, uint64, int) ([]model.Follow, uint64, error) {
	return nil, 0, nil
}

func (s *stubFollowStore) ListFollowers(context.Context, uint64, uint64, int) ([]model.Follow, uint64, error) {
	return nil, 0, nil
}

func newTestFollowService(store *stubFollowStore, users ...*model.User) *FollowService {
	return &FollowService{repo: store, users: &stubTargetResolver{users: users}}
}

func TestToggleDoubleToggleRestoresState(t *testing.T) {
	store := newStubFollowStore()
	bob := &model.User{ID: 2, Username: "bob", Name: "Bob Lee"}
	svc := newTestFollowService(store, bob)

	res, err := svc.Toggle(context.Background(), 1, "alice", "Alice", "Bob Lee")
	require.NoError(t, err)
	require.Equal(t, "followed", res.Action)
	require.True(t, res.IsFollowing)
	require.Equal(t, uint64(2), res.User.ID)
	require.Equal(t, int64(1), store.followerCount[2])
	require.Equal(t, int64(1), store.followingCount[1])

	res, err = svc.Toggle(context.Background(), 1, "alice", "Alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "unfollowed", res.Action)
	require.False(t, res.IsFollowing)
	require.Empty(t, store.edges)
	require.Equal(t, int64(0), store.followerCount[2])
	require.Equal(t, int64(0), store.followingCount[1])
}

func TestToggleCountersMatchEdges(t *testing.T) {
	store := newStubFollowStore()
	users := []*model.User{
		{ID: 2, Username: "bob", Name: "Bob"},
		{ID: 3, Username: "carol", Name: "Carol"},
	}
	svc := newTestFollowService(store, users...)

	for _, target := range []string{"bob", "carol", "bob", "bob"} {
		_, err := svc.Toggle(context.Background(), 1, "alice", "Alice", target)
		require.NoError(t, err)
	}

	// bob被关了又取消又关回：边在，carol的边也在
	require.Equal(t, int64(len(store.edges)), store.followingCount[1])
	var followers int64
	for _, u := range users {
		followers += store.followerCount[u.ID]
	}
	require.Equal(t, int64(len(store.edges)), followers)
}

func TestToggleSelfFollowByNamePrecheck(t *testing.T) {
	store := newStubFollowStore()
	svc := newTestFollowService(store)

	for _, target := range []string{"Alice", "alice", "  ALICE  ", "Alice Smith"} {
		_, err := svc.Toggle(context.Background(), 1, "alice", "Alice Smith", target)
		require.Error(t, err, target)
		require.Equal(t, pkg.CodeInvalidArgument, pkg.CodeOf(err))
	}
	// 预检查命中时绝不碰存储
	require.Zero(t, store.writeCalls)
}

func TestToggleSelfFollowByResolvedID(t *testing.T) {
	store := newStubFollowStore()
	// 展示名与actor的用户名/展示名都不同，但解析出来还是自己
	self := &model.User{ID: 1, Username: "alice", Name: "The Storyteller"}
	svc := newTestFollowService(store, self)

	_, err := svc.Toggle(context.Background(), 1, "alice", "Alice", "the storyteller")
	require.Error(t, err)
	require.Equal(t, pkg.CodeInvalidArgument, pkg.CodeOf(err))
	require.Zero(t, store.writeCalls)
}

func TestToggleTargetNotFound(t *testing.T) {
	svc := newTestFollowService(newStubFollowStore())

	_, err := svc.Toggle(context.Background(), 1, "alice", "Alice", "nobody")
	require.Error(t, err)
	require.Equal(t, pkg.CodeNotFound, pkg.CodeOf(err))
}

func TestToggleUnauthorized(t *testing.T) {
	svc := newTestFollowService(newStubFollowStore())

	_, err := svc.Toggle(context.Background(), 0, "", "", "bob")
	require.Error(t, err)
	require.Equal(t, pkg.CodeUnauthorized, pkg.CodeOf(err))
}

func TestTogglePartialEdgeSurfacesDistinctCode(t *testing.T) {
	store := newStubFollowStore()
	store.writeErr = fmt.Errorf("adjust counts: %w", mysql.ErrEdgePartial)
	bob := &model.User{ID: 2, Username: "bob", Name: "Bob"}
	svc := newTestFollowService(store, bob)

	_, err := svc.Toggle(context.Background(), 1, "alice", "Alice", "bob")
	require.Error(t, err)
	require.Equal(t, pkg.CodeEdgeInconsistent, pkg.CodeOf(err))
}
