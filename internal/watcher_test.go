package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	spyv1 "github.com/certusone/wormhole/node/pkg/proto/spy/v1"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/clients"
	"github.com/wormhole-demo/vaa-verifier/internal/instruction"
	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
	"github.com/wormhole-demo/vaa-verifier/internal/replay"
	"github.com/wormhole-demo/vaa-verifier/internal/vaatest"
)

type fakeStream struct {
	ctx  context.Context
	vaas chan []byte
}

func (s *fakeStream) Recv() (*spyv1.SubscribeSignedVAAResponse, error) {
	select {
	case b, ok := <-s.vaas:
		if !ok {
			return nil, errors.New("stream closed")
		}
		return &spyv1.SubscribeSignedVAAResponse{VaaBytes: b}, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

type fakeSubscriber struct {
	mu      sync.Mutex
	streams []chan []byte
	calls   int
}

func (f *fakeSubscriber) SubscribeSignedVAA(ctx context.Context) (clients.SignedVAAStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.streams) {
		return nil, errors.New("no more streams")
	}
	ch := f.streams[f.calls]
	f.calls++
	return &fakeStream{ctx: ctx, vaas: ch}, nil
}

func signed(t *testing.T, g *vaatest.Guardians, seq uint64) []byte {
	tr := &payload.TransferWithPayload{Amount: uint256.NewInt(seq)}
	body := vaatest.Body(tr.Encode())
	body.Sequence = seq
	return g.SignedBytes(t, 0, body, vaatest.Range(3)...)
}

func newDispatcher(t *testing.T, g *vaatest.Guardians, store replay.Store) *instruction.Dispatcher {
	p, err := pipeline.New(zap.NewNop(), pipeline.Config{
		Registry: vaatest.Registry(t, g.Set(t, 0)),
		Store:    store,
	}, nil)
	require.NoError(t, err)
	return instruction.NewDispatcher(zap.NewNop(), p, nil, nil)
}

func TestWatcherProcessesStreamAndReconnects(t *testing.T) {
	g := vaatest.NewGuardians(t, 3)
	store := replay.NewMemoryStore()

	first := make(chan []byte, 3)
	first <- signed(t, g, 1)
	first <- signed(t, g, 1) // replay, rejected
	first <- []byte{0xff}    // malformed, logged
	close(first)
	second := make(chan []byte, 1)
	second <- signed(t, g, 2)

	sub := &fakeSubscriber{streams: []chan []byte{first, second}}
	w := NewWatcher(zap.NewNop(), sub, newDispatcher(t, g, store))
	w.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return store.Len() == 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	require.Equal(t, 2, sub.calls)
}

func TestWatcherFailsWhenResubscribeFails(t *testing.T) {
	g := vaatest.NewGuardians(t, 1)
	only := make(chan []byte)
	close(only)

	w := NewWatcher(zap.NewNop(), &fakeSubscriber{streams: []chan []byte{only}}, newDispatcher(t, g, replay.NewMemoryStore()))
	w.retryDelay = time.Millisecond

	err := w.Start(context.Background())
	require.ErrorContains(t, err, "after retry")
}

func TestWatcherInitialSubscribeError(t *testing.T) {
	g := vaatest.NewGuardians(t, 1)
	w := NewWatcher(zap.NewNop(), &fakeSubscriber{}, newDispatcher(t, g, replay.NewMemoryStore()))
	require.Error(t, w.Start(context.Background()))
}
