package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bradenaw/juniper/xslices"
	"github.com/postman-push/go-postman-api"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers    = 4
	defaultRatePerSec = 50

	notificationTitle = "New notification"
	confirmationTitle = "Hello"
)

var errDispatcherStopped = errors.New("dispatcher stopped")

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notify queues message for every subscriber of the topic whose name is in names.
// It returns how many deliveries were queued.
func (b *Backend) Notify(ctx context.Context, topicID string, names []string, message string) (int, error) {
	if !b.HasTopic(topicID) {
		return 0, ErrNoSuchTopic
	}

	payload, err := json.Marshal(pushPayload{Title: notificationTitle, Body: message})
	if err != nil {
		return 0, err
	}

	if names == nil {
		names = []string{}
	}

	return b.dispatcher.enqueue(ctx, xslices.Map(b.findSubscribers(topicID, names), func(s *subscriber) delivery {
		return delivery{topicID: topicID, sub: s.sub, payload: payload}
	}))
}

// Confirm queues a test push to a freshly saved subscriber.
func (b *Backend) Confirm(ctx context.Context, sub postman.Subscriber) error {
	payload, err := json.Marshal(pushPayload{
		Title: confirmationTitle,
		Body:  fmt.Sprintf("Subscribed as %v", sub.Name),
	})
	if err != nil {
		return err
	}

	_, err = b.dispatcher.enqueue(ctx, []delivery{{topicID: sub.TopicID, sub: sub.Subscription, payload: payload}})

	return err
}

func (b *Backend) onGone(d delivery) {
	if b.DeleteSubscriber(d.sub.Endpoint) {
		log.WithField("topic", d.topicID).Info("Removed subscriber gone from the push service")
	}
}

type delivery struct {
	topicID string
	sub     postman.PushSubscription
	payload []byte
}

// dispatcher fans deliveries out to a fixed pool of workers sharing one rate limit.
type dispatcher struct {
	pusher  Pusher
	limiter *rate.Limiter
	onGone  func(delivery)

	queue chan delivery

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newDispatcher(pusher Pusher, workers, rps int, onGone func(delivery)) *dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}

	if rps <= 0 {
		rps = defaultRatePerSec
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &dispatcher{
		pusher:  pusher,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		onGone:  onGone,
		queue:   make(chan delivery, workers*64),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.wg.Add(workers)

	for i := 0; i < workers; i++ {
		go d.work()
	}

	return d
}

func (d *dispatcher) enqueue(ctx context.Context, deliveries []delivery) (int, error) {
	for i, del := range deliveries {
		if d.ctx.Err() != nil {
			return i, errDispatcherStopped
		}

		select {
		case d.queue <- del:

		case <-ctx.Done():
			return i, ctx.Err()

		case <-d.ctx.Done():
			return i, errDispatcherStopped
		}
	}

	return len(deliveries), nil
}

func (d *dispatcher) work() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case del := <-d.queue:
			d.deliver(del)
		}
	}
}

func (d *dispatcher) deliver(del delivery) {
	if err := d.limiter.Wait(d.ctx); err != nil {
		return
	}

	status, err := d.pusher.Push(d.ctx, del.sub.ToWebPush(), del.payload)
	if err == nil {
		return
	}

	log.WithField("topic", del.topicID).WithField("status", status).WithError(err).Warn("Failed to deliver push")

	if status == http.StatusNotFound || status == http.StatusGone {
		d.onGone(del)
	}
}

// stop cancels pending deliveries and waits for the workers to exit.
func (d *dispatcher) stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}
