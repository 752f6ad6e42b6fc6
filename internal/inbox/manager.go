package inbox

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
	"wa-relay/internal/whatsapp"
	"wa-relay/internal/worker"
)

type Store interface {
	Append(m model.Message)
}

type Publisher interface {
	PublishMessage(m model.Message) error
}

type Broadcaster interface {
	Broadcast(m model.Message)
}

type MediaQueue interface {
	Enqueue(job worker.MediaJob) bool
}

// Manager turns webhook deliveries into stored messages and fans them out.
// Only the store is required; the other sinks are optional.
type Manager struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu        sync.RWMutex
	publisher Publisher
	feed      Broadcaster
	media     MediaQueue
}

func NewManager(store Store, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		store: store,
		log:   log.WithField("component", "inbox"),
		now:   time.Now,
	}
}

func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

func (m *Manager) SetFeed(b Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = b
}

func (m *Manager) SetMediaQueue(q MediaQueue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media = q
}

// HandleWebhook normalizes one raw delivery and, when it carries a supported
// message, stores and fans it out. Skips are logged and counted only.
func (m *Manager) HandleWebhook(payload []byte) whatsapp.Result {
	res := whatsapp.Normalize(payload, m.now)
	if !res.OK() {
		metrics.MessagesSkipped.WithLabelValues(string(res.Reason)).Inc()
		entry := m.log.WithFields(logrus.Fields{"reason": res.Reason, "detail": res.Detail})
		if res.Reason == whatsapp.SkipNoMessage {
			entry.Debug("webhook carried no message")
		} else {
			entry.Warn("webhook message skipped")
		}
		return res
	}

	msg := *res.Message
	m.store.Append(msg)
	metrics.MessagesNormalized.WithLabelValues(string(msg.Type)).Inc()
	m.log.WithFields(logrus.Fields{"id": msg.ID, "from": msg.From, "type": msg.Type}).Info("message received")

	m.mu.RLock()
	publisher, feed, media := m.publisher, m.feed, m.media
	m.mu.RUnlock()

	if publisher != nil {
		if err := publisher.PublishMessage(msg); err != nil {
			m.log.WithError(err).WithField("id", msg.ID).Error("failed to publish message")
		}
	}
	if feed != nil {
		feed.Broadcast(msg)
	}
	if media != nil && msg.Type.IsMedia() && msg.Media != nil && msg.Media.MediaID != "" {
		media.Enqueue(worker.MediaJob{MessageID: msg.ID, Type: msg.Type, Media: *msg.Media})
	}
	return res
}
