package backend

import (
	"strings"
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
	"github.com/postman-push/go-postman-api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/unicode/norm"
)

type subscriber struct {
	id      string
	topicID string
	name    string

	sub       postman.PushSubscription
	createdAt time.Time
}

func (s *subscriber) toSubscriber() postman.Subscriber {
	return postman.Subscriber{
		ID:           s.id,
		TopicID:      s.topicID,
		Name:         s.name,
		Subscription: s.sub,
		CreatedAt:    s.createdAt,
	}
}

// normalizeName folds the ways a subscriber name can be typed into one form.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SaveSubscriber stores the subscription under the topic and name.
// Subscriptions are keyed by endpoint: saving a known endpoint replaces its owner and keys.
func (b *Backend) SaveSubscriber(topicID, name string, sub postman.PushSubscription) (postman.Subscriber, error) {
	if !b.HasTopic(topicID) {
		return postman.Subscriber{}, ErrNoSuchTopic
	}

	if name = normalizeName(name); name == "" {
		return postman.Subscriber{}, ErrInvalidName
	}

	sub.OwnerName = name
	sub.TopicID = topicID
	sub.Persisted = true

	b.subLock.Lock()
	defer b.subLock.Unlock()

	if s, ok := b.subscribers[sub.Endpoint]; ok {
		s.topicID = topicID
		s.name = name
		s.sub = sub

		log.WithField("topic", topicID).WithField("id", s.id).Info("Subscriber updated")

		return s.toSubscriber(), nil
	}

	s := &subscriber{
		id:        uuid.NewString(),
		topicID:   topicID,
		name:      name,
		sub:       sub,
		createdAt: time.Now(),
	}

	b.subscribers[sub.Endpoint] = s

	log.WithField("topic", topicID).WithField("id", s.id).Info("Subscriber created")

	return s.toSubscriber(), nil
}

// DeleteSubscriber removes the subscription with the given endpoint and reports whether one existed.
func (b *Backend) DeleteSubscriber(endpoint string) bool {
	b.subLock.Lock()
	defer b.subLock.Unlock()

	if _, ok := b.subscribers[endpoint]; !ok {
		return false
	}

	delete(b.subscribers, endpoint)

	return true
}

// GetSubscribers returns the subscribers of a topic, oldest first.
func (b *Backend) GetSubscribers(topicID string) []postman.Subscriber {
	return xslices.Map(b.findSubscribers(topicID, nil), func(s *subscriber) postman.Subscriber {
		return s.toSubscriber()
	})
}

// findSubscribers returns copies of the topic's subscribers whose name is one of names.
// A nil names matches everyone.
func (b *Backend) findSubscribers(topicID string, names []string) []*subscriber {
	want := make(map[string]struct{}, len(names))

	for _, name := range names {
		want[normalizeName(name)] = struct{}{}
	}

	b.subLock.RLock()
	defer b.subLock.RUnlock()

	found := xslices.Filter(maps.Values(b.subscribers), func(s *subscriber) bool {
		if s.topicID != topicID {
			return false
		}

		if names == nil {
			return true
		}

		_, ok := want[s.name]

		return ok
	})

	slices.SortFunc(found, func(a, b *subscriber) bool {
		if a.createdAt.Equal(b.createdAt) {
			return a.id < b.id
		}

		return a.createdAt.Before(b.createdAt)
	})

	return xslices.Map(found, func(s *subscriber) *subscriber {
		c := *s
		return &c
	})
}
