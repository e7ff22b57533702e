package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/synclock"
)

const testUserID = "0b6c3c1e-5f0d-4c1a-9f59-3f1b8f0e2a11"

type fakeTokenRepo struct {
	mu      sync.Mutex
	tokens  map[string]*domain.OAuthToken
	saveErr error
	saves   int
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*domain.OAuthToken)}
}

func (r *fakeTokenRepo) GetToken(_ context.Context, userID string, p domain.Provider) (*domain.OAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[userID+"|"+string(p)]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokenRepo) SaveToken(_ context.Context, t *domain.OAuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	cp := *t
	r.tokens[t.UserID+"|"+string(t.Provider)] = &cp
	return nil
}

type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[string]*domain.Integration
	outcomes     []domain.SyncOutcome
	errors       []string
}

func newFakeIntegrationRepo() *fakeIntegrationRepo {
	return &fakeIntegrationRepo{integrations: make(map[string]*domain.Integration)}
}

func (r *fakeIntegrationRepo) row(userID string, p domain.Provider) *domain.Integration {
	key := userID + "|" + string(p)
	in, ok := r.integrations[key]
	if !ok {
		in = &domain.Integration{UserID: userID, Provider: p, Status: domain.StatusNotConnected}
		r.integrations[key] = in
	}
	return in
}

func (r *fakeIntegrationRepo) GetIntegration(_ context.Context, userID string, p domain.Provider) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.integrations[userID+"|"+string(p)]
	if !ok {
		return nil, domain.ErrIntegrationNotFound
	}
	cp := *in
	cp.DeniedDataTypes = append([]string(nil), in.DeniedDataTypes...)
	return &cp, nil
}

func (r *fakeIntegrationRepo) ListIntegrations(_ context.Context, userID string) ([]domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Integration
	for _, in := range r.integrations {
		if in.UserID == userID {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) MarkPending(_ context.Context, userID string, p domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID, p).Status = domain.StatusPending
	return nil
}

func (r *fakeIntegrationRepo) MarkConnected(_ context.Context, userID string, p domain.Provider, scope []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.row(userID, p)
	in.Status = domain.StatusConnected
	in.ConnectedAt = &at
	in.AccessScope = scope
	in.DeniedDataTypes = nil
	return nil
}

func (r *fakeIntegrationRepo) MarkError(_ context.Context, userID string, p domain.Provider, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.row(userID, p)
	in.Status = domain.StatusError
	if in.Metadata == nil {
		in.Metadata = map[string]interface{}{}
	}
	in.Metadata["last_error"] = reason
	r.errors = append(r.errors, reason)
	return nil
}

func (r *fakeIntegrationRepo) RecordSyncOutcome(_ context.Context, userID string, p domain.Provider, o domain.SyncOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.row(userID, p)
	in.Status = domain.StatusConnected
	at := o.FinishedAt
	in.LastSyncAt = &at
	in.DeniedDataTypes = append([]string(nil), o.DeniedDataTypes...)
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *fakeIntegrationRepo) UpdateDeniedDataTypes(_ context.Context, userID string, p domain.Provider, denied []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID, p).DeniedDataTypes = append([]string(nil), denied...)
	return nil
}

func (r *fakeIntegrationRepo) ClaimAutoSync(_ context.Context, userID string, p domain.Provider, now time.Time, cooldown time.Duration) (bool, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.integrations[userID+"|"+string(p)]
	if !ok {
		return true, nil, nil
	}
	if in.LastAutoSyncAttemptAt != nil && now.Sub(*in.LastAutoSyncAttemptAt) < cooldown {
		next := in.LastAutoSyncAttemptAt.Add(cooldown)
		return false, &next, nil
	}
	in.LastAutoSyncAttemptAt = &now
	return true, nil, nil
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*domain.OAuthState)}
}

func (r *fakeStateRepo) CreateState(_ context.Context, st *domain.OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *st
	r.states[st.State] = &cp
	return nil
}

func (r *fakeStateRepo) GetState(_ context.Context, state string) (*domain.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[state]
	if !ok {
		return nil, domain.ErrOAuthStateNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *fakeStateRepo) MarkStateUsed(_ context.Context, state string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[state]
	if !ok || st.UsedAt != nil {
		return domain.ErrOAuthStateUsed
	}
	st.UsedAt = &usedAt
	return nil
}

func (r *fakeStateRepo) DeleteExpiredStates(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, st := range r.states {
		if st.ExpiresAt.Before(before) {
			delete(r.states, k)
			n++
		}
	}
	return n, nil
}

type fakeMetricRepo struct {
	mu        sync.Mutex
	entries   map[string]domain.HealthMetricEntry
	upserts   int
	upsertErr error
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{entries: make(map[string]domain.HealthMetricEntry)}
}

func entryKey(userID string, day time.Time, source string) string {
	return fmt.Sprintf("%s|%s|%s", userID, day.Format("2006-01-02"), source)
}

func (r *fakeMetricRepo) UpsertEntries(_ context.Context, entries []domain.HealthMetricEntry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return 0, r.upsertErr
	}
	r.upserts++
	for _, e := range entries {
		r.entries[entryKey(e.UserID, e.RecordedFor, e.Source)] = e
	}
	return len(entries), nil
}

func (r *fakeMetricRepo) ListEntries(_ context.Context, userID, source string, from, to time.Time) ([]domain.HealthMetricEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HealthMetricEntry
	for _, e := range r.entries {
		if e.UserID == userID && e.Source == source && !e.RecordedFor.Before(from) && !e.RecordedFor.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeMetricRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
	extended int

	// loseAfter makes Extend report a lost lease once it has been called that many times
	loseAfter int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, userID string, p domain.Provider) (*synclock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userID + "|" + string(p)
	if l.held[key] {
		return nil, domain.ErrSyncInProgress
	}
	l.held[key] = true
	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released++
		return nil
	}
	extend := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.loseAfter > 0 && l.extended >= l.loseAfter {
			return domain.ErrSyncInProgress
		}
		l.extended++
		return nil
	}
	return synclock.NewLease(userID, p, "test-owner", release, extend), nil
}

// dayResponse scripts what the fake source returns for one date
type dayResponse struct {
	values domain.MetricValues
	err    error
}

type fakeSource struct {
	provider domain.Provider

	mu        sync.Mutex
	responses map[string][]dayResponse
	calls     []string
	denied    [][]string
	fallback  domain.MetricValues
}

func newFakeSource(p domain.Provider) *fakeSource {
	return &fakeSource{
		provider:  p,
		responses: make(map[string][]dayResponse),
		fallback:  domain.MetricValues{Steps: domain.Ptr(1000)},
	}
}

// on queues responses for a date; each call consumes one
func (s *fakeSource) on(day time.Time, responses ...dayResponse) {
	s.responses[day.Format("2006-01-02")] = append(s.responses[day.Format("2006-01-02")], responses...)
}

func (s *fakeSource) Provider() domain.Provider { return s.provider }

func (s *fakeSource) FetchDay(_ context.Context, _ string, day time.Time, denied []string) (domain.MetricValues, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.Format("2006-01-02")
	s.calls = append(s.calls, key)
	s.denied = append(s.denied, append([]string(nil), denied...))

	queue := s.responses[key]
	if len(queue) == 0 {
		return s.fallback, nil
	}
	next := queue[0]
	s.responses[key] = queue[1:]
	return next.values, next.err
}
