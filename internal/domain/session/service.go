// Package session authenticates users and manages the lifetime of their
// access and refresh tokens.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// Directory is the identity lookup surface the session service needs.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	GetUserByID(ctx context.Context, id int64) (*identity.User, error)
	GetSecretaryByNationalID(ctx context.Context, nationalID string) (*identity.Secretary, error)
	ResolveActor(ctx context.Context, u *identity.User) (auth.Actor, error)
}

// Tokens issues and verifies signed tokens.
type Tokens interface {
	Issue(a auth.Actor) (*auth.TokenPair, error)
	Parse(raw string, want auth.TokenType) (*auth.Claims, error)
	ParseAllowExpired(raw string) (*auth.Claims, error)
}

// Revoker records and checks revoked token ids.
type Revoker interface {
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	dir     Directory
	tokens  Tokens
	revoked Revoker
	now     func() time.Time
}

func NewService(dir Directory, tokens Tokens, revoked Revoker) *Service {
	return &Service{dir: dir, tokens: tokens, revoked: revoked, now: time.Now}
}

// UserView is the user as returned by login. ID is the effective id: the
// secretary id for secretaries and the user id otherwise.
type UserView struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	NationalID string    `json:"national_id"`
	Role       auth.Role `json:"role"`
	ProfileID  int64     `json:"profile_id"`
	Phone      *string   `json:"phone,omitempty"`
	Address    *string   `json:"address,omitempty"`
}

type LoginResult struct {
	User   UserView        `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Authenticate checks an email and password. Unknown email and wrong
// password fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	const op = "session.Authenticate"

	u, err := s.dir.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		return nil, apperr.InvalidCredentials(op)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.InvalidCredentials(op)
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	actor, err := s.dir.ResolveActor(ctx, u)
	if err != nil {
		return nil, err
	}

	view, err := s.userView(ctx, u, actor)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(actor)
	if err != nil {
		return nil, apperr.Store("session.Login", err)
	}

	log.Ctx(ctx).Info().
		Int64("user_id", u.ID).
		Str("role", string(u.Role)).
		Msg("login succeeded")

	return &LoginResult{User: *view, Tokens: pair}, nil
}

// userView renders u for actor. Secretaries are shown under their
// secretary id.
func (s *Service) userView(ctx context.Context, u *identity.User, actor auth.Actor) (*UserView, error) {
	var sec *identity.Secretary
	if u.Role == auth.RoleSecretary {
		var err error
		sec, err = s.dir.GetSecretaryByNationalID(ctx, u.NationalID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	return &UserView{
		ID:         identity.ResolveEffectiveID(u, sec),
		UserID:     u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		NationalID: u.NationalID,
		Role:       u.Role,
		ProfileID:  actor.ProfileID(),
		Phone:      u.Phone,
		Address:    u.Address,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, raw string) (*auth.TokenPair, error) {
	const op = "session.Refresh"

	claims, err := s.tokens.Parse(raw, auth.RefreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(op, "invalid refresh token")
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if revoked {
		return nil, apperr.Unauthorized(op, "refresh token has been revoked")
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, apperr.Unauthorized(op, "invalid refresh token")
	}

	u, err := s.dir.GetUserByID(ctx, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized(op, "user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	actor, err := s.dir.ResolveActor(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.revoked.Revoke(ctx, claims.ID, uid, claims.ExpiresAtTime()); err != nil {
		return nil, apperr.Store(op, err)
	}
	pair, err := s.tokens.Issue(actor)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return pair, nil
}

// Logout revokes each given token until its natural expiry. Tokens that do
// not parse or have already expired are ignored.
func (s *Service) Logout(ctx context.Context, tokens ...string) error {
	now := s.now()
	for _, raw := range tokens {
		if raw == "" {
			continue
		}
		claims, err := s.tokens.ParseAllowExpired(raw)
		if err != nil {
			continue
		}
		exp := claims.ExpiresAtTime()
		if !exp.After(now) || claims.ID == "" {
			continue
		}
		uid, _ := claims.UserID()
		if err := s.revoked.Revoke(ctx, claims.ID, uid, exp); err != nil {
			return apperr.Store("session.Logout", err)
		}
	}
	return nil
}

// Me returns the account behind actor, rendered as login renders it.
func (s *Service) Me(ctx context.Context, actor auth.Actor) (*UserView, error) {
	u, err := s.dir.GetUserByID(ctx, actor.UserID())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("session.Me", "user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return s.userView(ctx, u, actor)
}
