package local

import (
	"errors"

	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errRevoked = errors.New("token revoked")

func (b *Backend) issue(a *repository.Account) (*model.Session, error) {
	now := b.clock.Now()
	expires := now.Add(b.lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   a.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	signed, err := token.SignedString(b.secret)
	if err != nil {
		return nil, err
	}

	refresh := uuid.NewString()
	b.mu.Lock()
	b.grants[refresh] = a.ID
	b.mu.Unlock()

	return &model.Session{
		UserID:       a.ID,
		AccessToken:  signed,
		RefreshToken: refresh,
		ExpiresAt:    expires,
	}, nil
}

// redeem consumes a refresh token and returns the account it was issued to.
func (b *Backend) redeem(refresh string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.grants[refresh]
	delete(b.grants, refresh)
	return id, ok
}

func (b *Backend) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.revoked[claims.ID]; ok {
		return nil, errRevoked
	}

	return claims, nil
}

// revoke remembers the token id until it would have expired anyway, and
// drops every refresh token of the same account.
func (b *Backend) revoke(claims *jwt.RegisteredClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	for id, exp := range b.revoked {
		if now.After(exp) {
			delete(b.revoked, id)
		}
	}

	if claims.ExpiresAt != nil {
		b.revoked[claims.ID] = claims.ExpiresAt.Time
	}

	for refresh, id := range b.grants {
		if id == claims.Subject {
			delete(b.grants, refresh)
		}
	}
}
