package service

import (
	"context"
	"errors"
	"testing"

	"FailTales/internal/model"
	"FailTales/internal/pkg"

	"github.com/stretchr/testify/require"
)

type stubSuggestStore struct {
	graph       []model.GraphCandidate
	graphErr    error
	interest    []model.LikeOverlap
	interestErr error
	collab      []model.LikeOverlap
	collabErr   error

	graphExclude []uint64
}

func (s *stubSuggestStore) GraphCandidates(_ context.Context, _, exclude []uint64) ([]model.GraphCandidate, error) {
	s.graphExclude = exclude
	return s.graph, s.graphErr
}

func (s *stubSuggestStore) InterestCandidates(_ context.Context, _, _ []uint64) ([]model.LikeOverlap, error) {
	return s.interest, s.interestErr
}

func (s *stubSuggestStore) CollabCandidates(_ context.Context, _, _ []uint64) ([]model.LikeOverlap, error) {
	return s.collab, s.collabErr
}

type stubSuggestFollows struct {
	ids []uint64
	err error
}

func (s *stubSuggestFollows) FollowingIDs(context.Context, uint64) ([]uint64, error) {
	return s.ids, s.err
}

type stubSuggestLikes struct {
	ids []uint64
	err error
}

func (s *stubSuggestLikes) LikedStoryIDs(context.Context, uint64) ([]uint64, error) {
	return s.ids, s.err
}

type stubSuggestUsers struct {
	briefs []model.UserBrief
}

func (s *stubSuggestUsers) BriefsByIDs(context.Context, []uint64) ([]model.UserBrief, error) {
	return s.briefs, nil
}

func briefsFor(ids ...uint64) *stubSuggestUsers {
	out := make([]model.UserBrief, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.UserBrief{ID: id, Username: "u", Name: "n"})
	}
	return &stubSuggestUsers{briefs: out}
}

func newTestSuggestService(store *stubSuggestStore, follows *stubSuggestFollows, likes *stubSuggestLikes, users *stubSuggestUsers) *SuggestService {
	return &SuggestService{store: store, follows: follows, likes: likes, users: users}
}

func TestSuggestMergeSumsScoresAndConcatsReasons(t *testing.T) {
	store := &stubSuggestStore{
		graph:    []model.GraphCandidate{{UserID: 7, Mutual: 0}},
		interest: []model.LikeOverlap{{UserID: 7, Count: 4}},
	}
	svc := newTestSuggestService(store,
		&stubSuggestFollows{ids: []uint64{2}},
		&stubSuggestLikes{ids: []uint64{100}},
		briefsFor(7))

	out, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	// 5 + 3*4：两路信号合并求和
	require.Equal(t, int64(17), out[0].Score)
	require.Equal(t, []string{"followed_by_your_network", "similar_interests"}, out[0].Reasons)
}

func TestSuggestTieBreakKeepsGeneratorOrder(t *testing.T) {
	store := &stubSuggestStore{
		graph:    []model.GraphCandidate{{UserID: 5, Mutual: 2}}, // 5+2*2=9
		interest: []model.LikeOverlap{{UserID: 6, Count: 3}},     // 3*3=9
		collab:   []model.LikeOverlap{{UserID: 8, Count: 5}},     // 4*5=20
	}
	svc := newTestSuggestService(store,
		&stubSuggestFollows{ids: []uint64{2}},
		&stubSuggestLikes{ids: []uint64{100}},
		briefsFor(5, 6, 8))

	out, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, uint64(8), out[0].UserID)
	// 同分：图距离信号源排在兴趣前面
	require.Equal(t, uint64(5), out[1].UserID)
	require.Equal(t, uint64(6), out[2].UserID)

	short, err := svc.SuggestedUsers(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, short, 2)
}

func TestSuggestNewUserGetsEmptyListNotError(t *testing.T) {
	svc := newTestSuggestService(&stubSuggestStore{},
		&stubSuggestFollows{}, &stubSuggestLikes{}, &stubSuggestUsers{})

	out, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSuggestGeneratorFailureDegrades(t *testing.T) {
	store := &stubSuggestStore{
		graph:       []model.GraphCandidate{{UserID: 7, Mutual: 1}},
		interestErr: errors.New("timeout"),
		collabErr:   errors.New("timeout"),
	}
	svc := newTestSuggestService(store,
		&stubSuggestFollows{ids: []uint64{2}},
		&stubSuggestLikes{ids: []uint64{100}},
		briefsFor(7))

	out, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(7), out[0].Score)
}

func TestSuggestFollowingLoadFailureIsFatal(t *testing.T) {
	svc := newTestSuggestService(&stubSuggestStore{},
		&stubSuggestFollows{err: errors.New("down")},
		&stubSuggestLikes{}, &stubSuggestUsers{})

	_, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.Error(t, err)
	require.Equal(t, pkg.CodeUpstreamUnavailable, pkg.CodeOf(err))
}

func TestSuggestExcludesSelfAndFollowed(t *testing.T) {
	store := &stubSuggestStore{}
	svc := newTestSuggestService(store,
		&stubSuggestFollows{ids: []uint64{2, 3}},
		&stubSuggestLikes{}, &stubSuggestUsers{})

	_, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2, 3}, store.graphExclude)
}

func TestSuggestHydrateSkipsDeletedUsers(t *testing.T) {
	store := &stubSuggestStore{
		graph: []model.GraphCandidate{{UserID: 7}, {UserID: 8}},
	}
	svc := newTestSuggestService(store,
		&stubSuggestFollows{ids: []uint64{2}},
		&stubSuggestLikes{}, briefsFor(8))

	out, err := svc.SuggestedUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, uint64(8), out[0].UserID)
}
