// Package auth authenticates identities from the team directory and issues
// bearer tokens for them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password; the two are not distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned for a missing, expired, revoked or
	// otherwise unusable token.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Directory supplies the current identities. FindIdentity returns an
// apperr.NotFoundError for an unknown id.
type Directory interface {
	Identities(ctx context.Context) ([]model.Identity, error)
	FindIdentity(ctx context.Context, id string) (*model.Identity, error)
}

// Claims is the token payload. Subject carries the identity id and ID the
// token id used for revocation.
type Claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	TeamID   string     `json:"teamId,omitempty"`
	jwt.RegisteredClaims
}

// User is the public view of an identity.
type User struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	TeamID   string     `json:"teamId,omitempty"`
	Name     string     `json:"name"`
}

// PublicUser strips the password hash from an identity.
func PublicUser(i model.Identity) User {
	return User{ID: i.ID, Username: i.Username, Role: i.Role, TeamID: i.TeamID, Name: i.Name}
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Authenticator issues and checks tokens. Revoked token ids are kept in
// memory until the token would have expired anyway.
type Authenticator struct {
	dir     Directory
	secret  []byte
	ttl     time.Duration
	revoked *cache.Cache
	now     func() time.Time
}

// New creates an Authenticator signing HS256 tokens with secret.
func New(dir Directory, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		dir:     dir,
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: cache.New(ttl, 10*time.Minute),
		now:     time.Now,
	}
}

// Authenticate checks the credentials against the directory and issues a
// token.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	identities, err := a.dir.Identities(ctx)
	if err != nil {
		return nil, err
	}
	for _, ident := range identities {
		if ident.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return a.issue(ident)
	}
	return nil, ErrInvalidCredentials
}

func (a *Authenticator) issue(ident model.Identity) (*Session, error) {
	issued := a.now()
	expires := issued.Add(a.ttl)
	claims := Claims{
		Username: ident.Username,
		Role:     ident.Role,
		TeamID:   ident.TeamID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: PublicUser(ident)}, nil
}

func (a *Authenticator) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// CurrentIdentity resolves a token to the identity it was issued for.
func (a *Authenticator) CurrentIdentity(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := a.parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if _, revoked := a.revoked.Get(claims.ID); revoked {
		return nil, ErrUnauthenticated
	}
	ident, err := a.dir.FindIdentity(ctx, claims.Subject)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return ident, nil
}

// Logout revokes token. Unusable tokens are ignored.
func (a *Authenticator) Logout(token string) {
	claims, err := a.parse(token)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	remaining := claims.ExpiresAt.Time.Sub(a.now())
	if remaining <= 0 {
		return
	}
	a.revoked.Set(claims.ID, struct{}{}, remaining)
}

// CanReassign reports whether who may set the request's assignee to
// assignee. Team logins may claim an unassigned request but not take one
// that is already assigned to someone else.
func CanReassign(who model.Identity, r model.Request, assignee string) bool {
	if who.Role == model.RoleAdmin {
		return true
	}
	return r.AssignedTo == "" || r.AssignedTo == assignee
}
