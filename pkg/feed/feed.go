package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// ErrFeedUnavailable is returned while no snapshot has been received.
var ErrFeedUnavailable = errors.New("alert feed unavailable")

// AlertFeed is the shared hazard report collection. Every delivery is a full snapshot.
type AlertFeed interface {
	Subscribe(handler func([]models.Alert)) error
	Latest() ([]models.Alert, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// DeleteRequest asks the feed owner to remove one record.
type DeleteRequest struct {
	Key string `json:"key"`
}

// MQTTFeed reads retained alert snapshots from a topic and requests deletions on another.
type MQTTFeed struct {
	client        mqtt.Wrapper
	snapshotTopic string
	deleteTopic   string
	qos           byte
	logger        zerolog.Logger

	mu          sync.RWMutex
	latest      []models.Alert
	version     uint64
	received    bool
	subscribers []*subscriber
	subscribed  bool

	// Snapshots are handed to subscribers on one dispatch goroutine, never on the
	// broker callback.
	wake        chan struct{}
	stop        chan struct{}
	dispatching bool
	wg          sync.WaitGroup
}

type subscriber struct {
	handler   func([]models.Alert)
	delivered uint64
}

var _ AlertFeed = (*MQTTFeed)(nil)

// NewMQTTFeed creates a feed over client.
func NewMQTTFeed(client mqtt.Wrapper, snapshotTopic, deleteTopic string, qos byte, logger zerolog.Logger) *MQTTFeed {
	return &MQTTFeed{
		client:        client,
		snapshotTopic: snapshotTopic,
		deleteTopic:   deleteTopic,
		qos:           qos,
		logger:        logger,
	}
}

// Subscribe registers handler for every snapshot. The first call subscribes to the broker.
// Handlers run on the feed's dispatch goroutine in snapshot order; a handler that falls
// behind receives only the newest snapshot. If a snapshot is already known, handler
// receives it as its first delivery.
func (f *MQTTFeed) Subscribe(handler func([]models.Alert)) error {
	f.mu.Lock()
	f.subscribers = append(f.subscribers, &subscriber{handler: handler})
	f.startDispatchLocked()
	subscribed := f.subscribed
	f.subscribed = true
	received := f.received
	f.mu.Unlock()

	if received {
		f.signal()
	}
	if subscribed {
		return nil
	}

	if err := f.client.Subscribe(f.snapshotTopic, f.qos, f.onMessage); err != nil {
		f.mu.Lock()
		f.subscribed = false
		f.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	f.logger.Info().Str("topic", f.snapshotTopic).Msg("Subscribed to alert feed")
	return nil
}

// onMessage runs on the broker callback; it only records the snapshot.
func (f *MQTTFeed) onMessage(_ mqttLib.Client, msg mqttLib.Message) {
	snapshot, err := ParseSnapshot(msg.Payload())
	if err != nil {
		f.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Discarding malformed alert snapshot")
		return
	}

	f.mu.Lock()
	f.latest = snapshot
	f.received = true
	f.version++
	f.mu.Unlock()

	f.logger.Debug().Int("alerts", len(snapshot)).Msg("Alert snapshot received")
	f.signal()
}

func (f *MQTTFeed) startDispatchLocked() {
	if f.dispatching {
		return
	}
	f.dispatching = true
	f.wake = make(chan struct{}, 1)
	f.stop = make(chan struct{})

	f.wg.Add(1)
	go f.dispatch(f.wake, f.stop)
}

func (f *MQTTFeed) signal() {
	f.mu.RLock()
	wake := f.wake
	f.mu.RUnlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}

func (f *MQTTFeed) dispatch(wake, stop <-chan struct{}) {
	defer f.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-wake:
			f.deliver()
		}
	}
}

// deliver hands the newest snapshot to every subscriber that has not seen it yet.
func (f *MQTTFeed) deliver() {
	f.mu.Lock()
	if !f.received {
		f.mu.Unlock()
		return
	}
	snapshot := f.latest
	var due []func([]models.Alert)
	for _, s := range f.subscribers {
		if s.delivered < f.version {
			s.delivered = f.version
			due = append(due, s.handler)
		}
	}
	f.mu.Unlock()

	for _, h := range due {
		h(append([]models.Alert(nil), snapshot...))
	}
}

// Latest returns the most recent snapshot.
func (f *MQTTFeed) Latest() ([]models.Alert, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.received {
		return nil, ErrFeedUnavailable
	}
	return append([]models.Alert(nil), f.latest...), nil
}

// Delete asks the feed owner to remove key.
func (f *MQTTFeed) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.client.Publish(f.deleteTopic, f.qos, false, DeleteRequest{Key: key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close drops the broker subscription and every handler. It waits for a delivery in
// progress to finish.
func (f *MQTTFeed) Close() error {
	f.mu.Lock()
	subscribed := f.subscribed
	f.subscribed = false
	f.subscribers = nil
	stop := f.stop
	f.dispatching = false
	f.wake, f.stop = nil, nil
	f.mu.Unlock()

	if stop != nil {
		close(stop)
		f.wg.Wait()
	}
	if !subscribed {
		return nil
	}
	return f.client.Unsubscribe(f.snapshotTopic)
}

// ParseSnapshot decodes a snapshot. The collection is normally an object keyed by record key;
// a plain array is accepted too. A record without its own key takes the object key. An empty
// payload or null is an empty snapshot.
func ParseSnapshot(data []byte) ([]models.Alert, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []models.Alert{}, nil
	}

	if data[0] == '[' {
		var list []models.Alert
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode alert list: %w", err)
		}
		return list, nil
	}

	var byKey map[string]models.Alert
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("decode alert collection: %w", err)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Alert, 0, len(byKey))
	for _, k := range keys {
		a := byKey[k]
		if a.Key == "" {
			a.Key = k
		}
		out = append(out, a)
	}
	return out, nil
}
