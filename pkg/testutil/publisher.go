package testutil

import (
	"context"
	"sync"

	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/pubsub"
)

type MockPublisher struct {
	PublishFunc func(context.Context, string, *pubsub.Pack) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, pack)
	}

	return errorx.New(errorx.NotImplemented, "Not implemented")
}

// RecordingPublisher keeps every published pack by topic.
type RecordingPublisher struct {
	mutex sync.Mutex
	packs map[string][]pubsub.Pack
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{packs: map[string][]pubsub.Pack{}}
}

func (p *RecordingPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.packs[topic] = append(p.packs[topic], *pack)
	return nil
}

func (p *RecordingPublisher) Packs(topic string) []pubsub.Pack {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]pubsub.Pack{}, p.packs[topic]...)
}
