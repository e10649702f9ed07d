package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainSession "github.com/prakhar-shukla17/SlotSwapper/internal/domain/session"
	domainUser "github.com/prakhar-shukla17/SlotSwapper/internal/domain/user"
)

type fakeUserRepo struct {
	byID    map[uuid.UUID]*domainUser.User
	byEmail map[string]*domainUser.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[uuid.UUID]*domainUser.User),
		byEmail: make(map[string]*domainUser.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domainUser.User) error {
	if _, ok := r.byEmail[u.Email]; ok {
		return domainUser.ErrEmailTaken
	}
	r.byID[u.UserID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domainUser.User, error) {
	return r.byID[userID], nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domainUser.User, error) {
	return r.byEmail[email], nil
}

type fakeSessionRepo struct {
	byHash map[string]*domainSession.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byHash: make(map[string]*domainSession.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domainSession.Session) error {
	r.byHash[s.TokenHash] = s
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domainSession.Session, error) {
	return r.byHash[tokenHash], nil
}

func (r *fakeSessionRepo) DeleteByID(_ context.Context, sessionID uuid.UUID) error {
	for hash, s := range r.byHash {
		if s.SessionID == sessionID {
			delete(r.byHash, hash)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	delete(r.byHash, tokenHash)
	return nil
}

func (r *fakeSessionRepo) UpdateLastSeen(_ context.Context, sessionID uuid.UUID) error {
	now := time.Now().UTC()
	for _, s := range r.byHash {
		if s.SessionID == sessionID {
			s.LastSeenAt = &now
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int, error) {
	n := 0
	now := time.Now().UTC()
	for hash, s := range r.byHash {
		if s.IsExpired(now) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *domainUser.User {
	t.Helper()
	hash, err := domainUser.HashPassword(password)
	require.NoError(t, err)
	u := &domainUser.User{
		UserID:       uuid.New(),
		Name:         "Alice",
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestLoginAndAuthenticate(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	svc := NewService(users, sessions, time.Hour, zerolog.Nop())
	u := seedUser(t, users, "alice@example.com", "correct horse")

	res, err := svc.Login(context.Background(), "Alice@Example.com", "correct horse", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, res.Token, res.Session.TokenHash, "raw token is never stored")

	got, sess, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, res.Session.SessionID, sess.SessionID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	svc := NewService(users, sessions, time.Hour, zerolog.Nop())
	seedUser(t, users, "alice@example.com", "correct horse")

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "correct horse", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	svc := NewService(users, sessions, -time.Minute, zerolog.Nop())
	seedUser(t, users, "alice@example.com", "correct horse")

	res, err := svc.Login(context.Background(), "alice@example.com", "correct horse", nil, nil)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, sessions.byHash, "expired session is removed on touch")
}

func TestLogoutInvalidatesToken(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	svc := NewService(users, sessions, time.Hour, zerolog.Nop())
	seedUser(t, users, "alice@example.com", "correct horse")

	res, err := svc.Login(context.Background(), "alice@example.com", "correct horse", nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), res.Token))

	_, _, err = svc.Authenticate(context.Background(), res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
