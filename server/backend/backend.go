package backend

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var log = logrus.WithField("pkg", "server/backend")

// Config holds what the backend needs to sign sessions and deliver pushes.
type Config struct {
	// AuthLife is how long an access token stays valid.
	AuthLife time.Duration

	// RefreshLife is how long a refresh token stays valid.
	RefreshLife time.Duration

	// SigningKey signs session tokens. A random key is used if empty.
	SigningKey []byte

	// VAPIDPublicKey and VAPIDPrivateKey identify the server to push services.
	// A fresh pair is generated if either is empty.
	VAPIDPublicKey  string
	VAPIDPrivateKey string

	// VAPIDSubscriber is the contact sent to push services.
	VAPIDSubscriber string

	// Pusher delivers encrypted messages. A webpush pusher is used if nil.
	Pusher Pusher

	// Workers is the number of delivery workers.
	Workers int

	// RatePerSec bounds deliveries across all workers.
	RatePerSec int
}

type Backend struct {
	accounts map[string]*account
	accLock  sync.RWMutex

	subscribers map[string]*subscriber
	subLock     sync.RWMutex

	sessions    map[string]*session
	sessionLock sync.RWMutex

	authLife    time.Duration
	refreshLife time.Duration
	signingKey  []byte

	vapidPublicKey string

	dispatcher *dispatcher
}

type account struct {
	topicID  string
	username string
	hash     []byte
}

func New(cfg Config) (*Backend, error) {
	if cfg.AuthLife == 0 {
		cfg.AuthLife = 5 * time.Minute
	}

	if cfg.RefreshLife == 0 {
		cfg.RefreshLife = 30 * 24 * time.Hour
	}

	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 32)

		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}

	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		priv, pub, err := GenerateVAPIDKeys()
		if err != nil {
			return nil, err
		}

		cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey = pub, priv
	}

	if cfg.Pusher == nil {
		cfg.Pusher = NewWebPusher(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, nil)
	}

	b := &Backend{
		accounts:    make(map[string]*account),
		subscribers: make(map[string]*subscriber),
		sessions:    make(map[string]*session),

		authLife:    cfg.AuthLife,
		refreshLife: cfg.RefreshLife,
		signingKey:  cfg.SigningKey,

		vapidPublicKey: cfg.VAPIDPublicKey,
	}

	b.dispatcher = newDispatcher(cfg.Pusher, cfg.Workers, cfg.RatePerSec, b.onGone)

	return b, nil
}

func (b *Backend) SetAuthLife(authLife time.Duration) {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	b.authLife = authLife
}

// GetPublicKey returns the VAPID public key subscribers must bind their subscription to.
func (b *Backend) GetPublicKey() string {
	return b.vapidPublicKey
}

// CreateAccount registers a producer account and returns its topic ID.
func (b *Backend) CreateAccount(username string, password []byte) (string, error) {
	if username == "" || len(password) == 0 {
		return "", ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		if acc.username == username {
			return "", ErrAccountExists
		}
	}

	topicID := uuid.NewString()

	b.accounts[topicID] = &account{
		topicID:  topicID,
		username: username,
		hash:     hash,
	}

	log.WithField("topic", topicID).Info("Account created")

	return topicID, nil
}

// HasTopic reports whether a producer owns the given topic.
func (b *Backend) HasTopic(topicID string) bool {
	b.accLock.RLock()
	defer b.accLock.RUnlock()

	_, ok := b.accounts[topicID]

	return ok
}

func (b *Backend) checkPassword(username string, password []byte) (string, error) {
	b.accLock.RLock()
	defer b.accLock.RUnlock()

	for _, acc := range b.accounts {
		if acc.username != username {
			continue
		}

		if err := bcrypt.CompareHashAndPassword(acc.hash, password); err != nil {
			return "", ErrInvalidCredentials
		}

		return acc.topicID, nil
	}

	return "", ErrInvalidCredentials
}

// Close stops delivering pushes and waits for the workers to exit.
func (b *Backend) Close() {
	b.dispatcher.stop()
}
