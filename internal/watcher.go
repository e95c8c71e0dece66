package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/clients"
	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/instruction"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
)

// Subscriber opens a stream of signed VAAs. *clients.SpyClient implements it.
type Subscriber interface {
	SubscribeSignedVAA(ctx context.Context) (clients.SignedVAAStream, error)
}

// Executor runs instruction bytes. *instruction.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, data []byte) (*instruction.Receipt, error)
}

// Watcher feeds every VAA seen on the spy stream through the dispatcher as
// a process instruction.
type Watcher struct {
	subscriber Subscriber
	executor   Executor
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewWatcher(logger *zap.Logger, subscriber Subscriber, executor Executor) *Watcher {
	return &Watcher{
		subscriber: subscriber,
		executor:   executor,
		logger:     logger.With(zap.String("component", "Watcher")),
		retryDelay: 5 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the stream cannot be re-established.
// In-flight VAAs finish before it returns.
func (w *Watcher) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stream, err := w.subscriber.SubscribeSignedVAA(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to VAA stream: %w", err)
	}
	w.logger.Info("Listening for VAAs")

	for {
		resp, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Shutting down watcher; waiting for in-flight VAAs")
				return nil
			}
			w.logger.Warn("Stream error, retrying", zap.Error(err), zap.Duration("retryIn", w.retryDelay))
			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
				return nil
			}
			stream, err = w.subscriber.SubscribeSignedVAA(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("subscribe to VAA stream after retry: %w", err)
			}
			continue
		}

		data := make([]byte, 0, len(resp.VaaBytes)+1)
		data = append(data, byte(instruction.OpProcessVAA))
		data = append(data, resp.VaaBytes...)

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.handle(ctx, data)
		}()
	}
}

func (w *Watcher) handle(ctx context.Context, data []byte) {
	receipt, err := w.executor.Execute(ctx, data)
	switch {
	case err == nil:
		w.logger.Info("VAA consumed",
			zap.String("messageId", receipt.Outcome.VAA.MessageID()),
			zap.String("digest", receipt.Outcome.Posted.Digest().Hex()))
	case errors.Is(err, pipeline.ErrFiltered):
		w.logger.Debug("VAA filtered", zap.Error(err))
	case errs.IsKind(err, errs.KindAlreadyPosted):
		w.logger.Debug("VAA already posted", zap.Error(err))
	default:
		w.logger.Error("Error processing VAA",
			zap.String("kind", string(errs.KindOf(err))),
			zap.Bool("retriable", errs.Retriable(errs.KindOf(err))),
			zap.Error(err))
	}
}
