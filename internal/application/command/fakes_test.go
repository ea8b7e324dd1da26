package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/profile"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"
)

// In-memory fakes backing the handler tests. They implement the same
// contracts as the postgres repositories, including the idempotency and
// mutual-flip semantics the handlers rely on.

// ──────────────────────────────────────────────────────────────────────────────
// Users & blocks
// ──────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	users map[shared.UserID]*user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[shared.UserID]*user.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id shared.UserID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) ListActive(_ context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		if u.IsActive() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeBlockRepo struct {
	blocks map[shared.UserID]map[shared.UserID]struct{}
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{blocks: make(map[shared.UserID]map[shared.UserID]struct{})}
}

func (r *fakeBlockRepo) Create(_ context.Context, blockerID, blockedID shared.UserID) error {
	if r.blocks[blockerID] == nil {
		r.blocks[blockerID] = make(map[shared.UserID]struct{})
	}
	r.blocks[blockerID][blockedID] = struct{}{}
	return nil
}

func (r *fakeBlockRepo) IsBlockedEither(_ context.Context, a, b shared.UserID) (bool, error) {
	_, ab := r.blocks[a][b]
	_, ba := r.blocks[b][a]
	return ab || ba, nil
}

func (r *fakeBlockRepo) BlockedSetFor(_ context.Context, id shared.UserID) (map[shared.UserID]struct{}, error) {
	set := make(map[shared.UserID]struct{})
	for blocked := range r.blocks[id] {
		set[blocked] = struct{}{}
	}
	for blocker, targets := range r.blocks {
		if _, ok := targets[id]; ok {
			set[blocker] = struct{}{}
		}
	}
	return set, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Vectors
// ──────────────────────────────────────────────────────────────────────────────

type fakeVectorRepo struct {
	vectors map[shared.UserID]*profile.UserVector
}

func newFakeVectorRepo() *fakeVectorRepo {
	return &fakeVectorRepo{vectors: make(map[shared.UserID]*profile.UserVector)}
}

func (r *fakeVectorRepo) GetVector(_ context.Context, userID shared.UserID) (*profile.UserVector, error) {
	v, ok := r.vectors[userID]
	if !ok {
		return nil, shared.ErrVectorNotFound
	}
	return v, nil
}

func (r *fakeVectorRepo) put(userID shared.UserID, dims map[profile.Dimension]profile.DimensionScore) {
	r.vectors[userID] = &profile.UserVector{
		UserID:     userID,
		Valid:      true,
		Dimensions: dims,
	}
}

// uniformDims builds a dimension map with the same value everywhere.
func uniformDims(value int) map[profile.Dimension]profile.DimensionScore {
	dims := make(map[profile.Dimension]profile.DimensionScore)
	for _, d := range profile.AllDimensions() {
		dims[d] = profile.DimensionScore(value)
	}
	return dims
}

// ──────────────────────────────────────────────────────────────────────────────
// Batches & proposals
// ──────────────────────────────────────────────────────────────────────────────

type fakeMatchRepo struct {
	batches   *fakeBatchRepo
	proposals *fakeProposalRepo
}

func newFakeMatchRepo() *fakeMatchRepo {
	proposals := &fakeProposalRepo{byID: make(map[string]*matching.Proposal)}
	return &fakeMatchRepo{
		batches:   &fakeBatchRepo{byKey: make(map[string]*matching.Batch), proposals: proposals},
		proposals: proposals,
	}
}

func (r *fakeMatchRepo) Batches() matching.BatchRepository { return r.batches }

func (r *fakeMatchRepo) Proposals() matching.ProposalRepository { return r.proposals }

type fakeBatchRepo struct {
	byKey     map[string]*matching.Batch
	proposals *fakeProposalRepo
}

func batchKey(userID shared.UserID, key matching.RoundKey) string {
	return userID.String() + "|" + key.String()
}

func (r *fakeBatchRepo) GetByUserAndRoundKey(_ context.Context, userID shared.UserID, key matching.RoundKey) (*matching.Batch, error) {
	b, ok := r.byKey[batchKey(userID, key)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *fakeBatchRepo) CreateWithProposal(_ context.Context, batch *matching.Batch, proposal *matching.Proposal) error {
	key := batchKey(batch.UserID, batch.RoundKey)
	if _, exists := r.byKey[key]; exists {
		return shared.ErrBatchAlreadyExists
	}
	r.byKey[key] = batch
	if proposal != nil {
		r.proposals.put(proposal)
	}
	return nil
}

// fakeProposalRepo serializes every operation on one mutex, mirroring the
// pair-wide row locking of the postgres repository: a racing accept always
// observes the other side's committed status, never a stale one.
type fakeProposalRepo struct {
	mu   sync.Mutex
	byID map[string]*matching.Proposal
}

func (r *fakeProposalRepo) put(p *matching.Proposal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
}

func (r *fakeProposalRepo) GetByID(_ context.Context, id string) (*matching.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProposalRepo) GetByProposerAndRound(_ context.Context, proposerID shared.UserID, week matching.WeekKey, round matching.Round) (*matching.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ProposerID == proposerID && p.WeekKey == week && p.Round == round {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrProposalNotFound
}

func (r *fakeProposalRepo) GetMirror(_ context.Context, proposerID, candidateID shared.UserID, week matching.WeekKey) (*matching.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ProposerID == candidateID && p.CandidateID == proposerID && p.WeekKey == week {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrProposalNotFound
}

func (r *fakeProposalRepo) Reject(_ context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return shared.ErrProposalNotFound
	}
	return p.Reject(reason)
}

func (r *fakeProposalRepo) AcceptWithMutualCheck(_ context.Context, p *matching.Proposal) (*matching.AcceptOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}

	for _, mirror := range r.byID {
		if mirror.ProposerID == stored.CandidateID &&
			mirror.CandidateID == stored.ProposerID &&
			mirror.WeekKey == stored.WeekKey &&
			mirror.Status == matching.ProposalStatusAccepted {
			if err := stored.MarkMutual(); err != nil {
				return nil, err
			}
			if err := mirror.MarkMutual(); err != nil {
				return nil, err
			}
			return &matching.AcceptOutcome{
				Status:           matching.ProposalStatusMutualAccepted,
				MutualFlipped:    true,
				MirrorProposalID: mirror.ID,
			}, nil
		}
	}

	if err := stored.Accept(); err != nil {
		return nil, err
	}
	return &matching.AcceptOutcome{Status: matching.ProposalStatusAccepted}, nil
}

func (r *fakeProposalRepo) ExpirePending(_ context.Context, week matching.WeekKey, round matching.Round, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.byID {
		if p.WeekKey == week && p.Round == round &&
			p.Status == matching.ProposalStatusPending && p.CreatedAt.Before(cutoff) {
			if err := p.MarkExpired(); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (r *fakeProposalRepo) RecentlyRejectedCandidateIDs(_ context.Context, proposerID shared.UserID, since time.Time) ([]shared.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []shared.UserID
	for _, p := range r.byID {
		if p.ProposerID == proposerID && p.Status == matching.ProposalStatusRejected &&
			p.ActedAt != nil && p.ActedAt.After(since) {
			ids = append(ids, p.CandidateID)
		}
	}
	return ids, nil
}

func (r *fakeProposalRepo) AcceptedProposerIDs(_ context.Context, week matching.WeekKey, round matching.Round) ([]shared.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []shared.UserID
	for _, p := range r.byID {
		if p.WeekKey == week && p.Round == round && p.Status == matching.ProposalStatusAccepted {
			ids = append(ids, p.ProposerID)
		}
	}
	return ids, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Events, IDs, notifier
// ──────────────────────────────────────────────────────────────────────────────

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published(t shared.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, e := range p.events {
		if e.EventType() == t {
			count++
		}
	}
	return count
}

type fakeIDGen struct {
	n int
}

func (g *fakeIDGen) GenerateID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fakeNotifier struct {
	mu         sync.Mutex
	calls      int
	channelRef string
	err        error
}

func (n *fakeNotifier) EnsureChannel(_ context.Context, _, _, _ string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return "", n.err
	}
	return n.channelRef, nil
}
