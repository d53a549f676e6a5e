package backend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenKind string

const (
	accessToken  tokenKind = "access"
	refreshToken tokenKind = "refresh"
)

type claims struct {
	Kind tokenKind `json:"kind"`

	jwt.RegisteredClaims
}

type session struct {
	topicID string
	kind    tokenKind
	revoked bool
}

// Tokens is a signed token pair along with how long each token lives.
type Tokens struct {
	Access     string
	AccessLife time.Duration

	Refresh     string
	RefreshLife time.Duration
}

// NewSession checks the credentials and issues a fresh token pair.
func (b *Backend) NewSession(username string, password []byte) (string, Tokens, error) {
	topicID, err := b.checkPassword(username, password)
	if err != nil {
		return "", Tokens{}, err
	}

	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	access, err := b.issue(topicID, accessToken, b.authLife)
	if err != nil {
		return "", Tokens{}, err
	}

	refresh, err := b.issue(topicID, refreshToken, b.refreshLife)
	if err != nil {
		return "", Tokens{}, err
	}

	return topicID, Tokens{
		Access:      access,
		AccessLife:  b.authLife,
		Refresh:     refresh,
		RefreshLife: b.refreshLife,
	}, nil
}

// RefreshSession exchanges a valid refresh token for a new access token.
func (b *Backend) RefreshSession(refresh string) (Tokens, error) {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	topicID, err := b.verify(refresh, refreshToken)
	if err != nil {
		return Tokens{}, err
	}

	access, err := b.issue(topicID, accessToken, b.authLife)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{Access: access, AccessLife: b.authLife}, nil
}

// VerifySession returns the topic owned by the holder of the access token.
func (b *Backend) VerifySession(access string) (string, error) {
	b.sessionLock.RLock()
	defer b.sessionLock.RUnlock()

	return b.verify(access, accessToken)
}

// DeleteSession revokes the given tokens. Unknown or malformed tokens are ignored.
func (b *Backend) DeleteSession(tokens ...string) {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	for _, token := range tokens {
		if c, err := b.parse(token); err == nil {
			if s, ok := b.sessions[c.ID]; ok {
				s.revoked = true
			}
		}
	}
}

// ExpireSessions invalidates every access token. Refresh tokens keep working.
func (b *Backend) ExpireSessions() {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	for _, s := range b.sessions {
		if s.kind == accessToken {
			s.revoked = true
		}
	}
}

// RevokeSessions invalidates every token.
func (b *Backend) RevokeSessions() {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	for _, s := range b.sessions {
		s.revoked = true
	}
}

func (b *Backend) issue(topicID string, kind tokenKind, life time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   topicID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(life)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(b.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	b.sessions[c.ID] = &session{topicID: topicID, kind: kind}

	return token, nil
}

func (b *Backend) verify(token string, kind tokenKind) (string, error) {
	c, err := b.parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	s, ok := b.sessions[c.ID]
	if !ok || s.revoked || s.kind != kind || c.Kind != kind || s.topicID != c.Subject {
		return "", ErrInvalidSession
	}

	return s.topicID, nil
}

func (b *Backend) parse(token string) (*claims, error) {
	c := &claims{}

	if _, err := jwt.ParseWithClaims(token, c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return b.signingKey, nil
	}); err != nil {
		return nil, err
	}

	return c, nil
}
