package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	keys     []string
}

func (p *stubPublisher) Publish(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func TestMirrorEnqueueNeverBlocks(t *testing.T) {
	// no worker draining the inbox; overflow must drop, not block
	m := NewKafkaMirror(&stubPublisher{}, nil, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			m.Enqueue(Entry{ID: int64(i), ActionType: ActionCaseCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full inbox")
	}
}

func TestMirrorPublishesKeyedByCase(t *testing.T) {
	pub := &stubPublisher{}
	m := NewKafkaMirror(pub, nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	caseID := int64(42)
	m.Enqueue(Entry{ID: 1, ActionType: ActionCaseCreated, CaseID: &caseID, Timestamp: time.Now()})
	m.Enqueue(Entry{ID: 2, ActionType: ActionAuthenticationFailed, Timestamp: time.Now()})

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.ElementsMatch(t, []string{"42", "2"}, pub.keys)
}
