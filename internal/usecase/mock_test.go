//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- Transaction manager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Credentials ----

type MockCredentialRepo struct {
	mu     sync.Mutex
	byTok  map[string]*model.Credential
	nextID int

	CreateErr  error
	ConsumeErr error
}

func NewMockCredentialRepo() *MockCredentialRepo {
	return &MockCredentialRepo{byTok: map[string]*model.Credential{}}
}

var _ repository.CredentialRepository = (*MockCredentialRepo)(nil)

func (m *MockCredentialRepo) Create(ctx context.Context, tx repository.Tx, c *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, dup := m.byTok[c.Token]; dup {
		return domain.ErrAlreadyExists
	}
	m.nextID++
	if c.ID == "" {
		c.ID = fmt.Sprintf("cred-%d", m.nextID)
	}
	cp := *c
	m.byTok[c.Token] = &cp
	return nil
}

// Consume mirrors the conditional UPDATE: check and flip under one lock.
func (m *MockCredentialRepo) Consume(ctx context.Context, tx repository.Tx, token string, now time.Time) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	c, ok := m.byTok[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if err := c.RejectionErr(now); err != nil {
		return nil, err
	}
	c.Used = true
	usedAt := now
	c.UsedAt = &usedAt
	cp := *c
	return &cp, nil
}

func (m *MockCredentialRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (repository.CredentialCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out repository.CredentialCounts
	for _, c := range m.byTok {
		switch c.State(now) {
		case model.CredentialValid:
			out.Valid++
		case model.CredentialConsumed:
			out.Used++
		case model.CredentialExpired:
			out.Expired++
		}
	}
	return out, nil
}

func (m *MockCredentialRepo) Get(token string) *model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byTok[token]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (m *MockCredentialRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTok)
}

// ---- Accounts ----

type MockAccountRepo struct {
	mu     sync.Mutex
	byTg   map[int64]*model.Account
	nextID int

	LookupErr error
	EnsureErr error
}

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{byTg: map[int64]*model.Account{}}
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func (m *MockAccountRepo) Seed(a *model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTg[a.TelegramID] = a
}

func (m *MockAccountRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	a, ok := m.byTg[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepo) LookupAccountID(ctx context.Context, tx repository.Tx, tgID int64) (string, error) {
	a, err := m.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (m *MockAccountRepo) Ensure(ctx context.Context, tx repository.Tx, tgID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnsureErr != nil {
		return "", false, m.EnsureErr
	}
	if a, ok := m.byTg[tgID]; ok {
		return a.ID, false, nil
	}
	m.nextID++
	a := &model.Account{ID: fmt.Sprintf("acc-%d", m.nextID), TelegramID: tgID, CreatedAt: time.Now()}
	m.byTg[tgID] = a
	return a.ID, true, nil
}

// ---- Auth store ----

// MockAuthStore is the in-memory rendition of the two-operation storage surface.
type MockAuthStore struct {
	Creds    *MockCredentialRepo
	Accounts *MockAccountRepo
}

var _ repository.AuthStore = (*MockAuthStore)(nil)

func (s *MockAuthStore) IssueCredential(ctx context.Context, c *model.Credential) error {
	return s.Creds.Create(ctx, repository.NoTX, c)
}

func (s *MockAuthStore) LookupAccountID(ctx context.Context, tgID int64) (string, error) {
	return s.Accounts.LookupAccountID(ctx, repository.NoTX, tgID)
}

// ---- Referrals ----

type MockReferralRepo struct {
	mu   sync.Mutex
	rows []*model.Referral

	CreateErr error
}

func NewMockReferralRepo() *MockReferralRepo { return &MockReferralRepo{} }

var _ repository.ReferralRepository = (*MockReferralRepo)(nil)

func (m *MockReferralRepo) Create(ctx context.Context, tx repository.Tx, r *model.Referral) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	for _, x := range m.rows {
		if x.ReferrerTelegramID == r.ReferrerTelegramID && x.ReferredTelegramID == r.ReferredTelegramID {
			return false, nil
		}
	}
	cp := *r
	m.rows = append(m.rows, &cp)
	return true, nil
}

func (m *MockReferralRepo) CountByReferrer(ctx context.Context, tx repository.Tx, referrer int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.rows {
		if x.ReferrerTelegramID == referrer {
			n++
		}
	}
	return n, nil
}

func (m *MockReferralRepo) Rows() []model.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Referral, len(m.rows))
	for i, r := range m.rows {
		out[i] = *r
	}
	return out
}

type MockPendingStore struct {
	mu      sync.Mutex
	parked  map[int64]int64
	ParkErr error
}

func NewMockPendingStore() *MockPendingStore {
	return &MockPendingStore{parked: map[int64]int64{}}
}

var _ repository.PendingReferralStore = (*MockPendingStore)(nil)

func (m *MockPendingStore) Park(ctx context.Context, referred, referrer int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ParkErr != nil {
		return m.ParkErr
	}
	m.parked[referred] = referrer
	return nil
}

func (m *MockPendingStore) Pop(ctx context.Context, referred int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.parked[referred]
	delete(m.parked, referred)
	return r, ok, nil
}

func (m *MockPendingStore) Parked(referred int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.parked[referred]
	return r, ok
}

// ---- Plans ----

type MockPlanRepo struct {
	mu     sync.Mutex
	byName map[string]*model.Plan

	SaveErr error
}

func NewMockPlanRepo() *MockPlanRepo { return &MockPlanRepo{byName: map[string]*model.Plan{}} }

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *p
	m.byName[p.Name] = &cp
	return nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Plan, 0, len(m.byName))
	for _, p := range m.byName {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// =============================
// Collaborators
// =============================

type mockSessionMinter struct {
	Err error
}

func (m *mockSessionMinter) Mint(accountID string, tgID int64) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("session:%s:%d", accountID, tgID), nil
}

type mockReferralUC struct {
	mu        sync.Mutex
	Completed []int64
}

func (m *mockReferralUC) Record(ctx context.Context, referrer, referred int64) {}

func (m *mockReferralUC) Complete(ctx context.Context, referred int64, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, referred)
}
