// Package instruction dispatches discriminated instruction bytes: a counter
// increment, or a signed VAA to verify, post, apply and consume.
package instruction

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
)

// Op is the leading discriminant byte of an instruction.
type Op uint8

const (
	OpIncrement  Op = 0
	OpProcessVAA Op = 1
)

func (o Op) String() string {
	switch o {
	case OpIncrement:
		return "Increment"
	case OpProcessVAA:
		return "ProcessVAA"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Counter is the state touched by OpIncrement.
type Counter interface {
	Increment(ctx context.Context) (uint64, error)
}

// Applier performs the downstream action for a posted VAA. When Apply
// returns nil the record is marked consumed; otherwise it stays posted.
type Applier interface {
	Apply(ctx context.Context, out *pipeline.Outcome) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, out *pipeline.Outcome) error

func (f ApplierFunc) Apply(ctx context.Context, out *pipeline.Outcome) error { return f(ctx, out) }

// MemoryCounter is an in-process Counter.
type MemoryCounter struct {
	count atomic.Uint64
}

func (c *MemoryCounter) Increment(context.Context) (uint64, error) {
	return c.count.Add(1), nil
}

func (c *MemoryCounter) Value() uint64 { return c.count.Load() }

// Receipt describes an executed instruction.
type Receipt struct {
	Op      Op
	Count   uint64
	Outcome *pipeline.Outcome
}

type Dispatcher struct {
	processor pipeline.VAAProcessor
	counter   Counter
	applier   Applier
	logger    *zap.Logger
}

// NewDispatcher wires a dispatcher. A nil applier logs the transfer and
// accepts it.
func NewDispatcher(logger *zap.Logger, processor pipeline.VAAProcessor, counter Counter, applier Applier) *Dispatcher {
	logger = logger.With(zap.String("component", "Dispatcher"))
	if counter == nil {
		counter = &MemoryCounter{}
	}
	if applier == nil {
		applier = LogApplier(logger)
	}
	return &Dispatcher{
		processor: processor,
		counter:   counter,
		applier:   applier,
		logger:    logger,
	}
}

// LogApplier returns an Applier that only logs the decoded transfer.
func LogApplier(logger *zap.Logger) Applier {
	return ApplierFunc(func(_ context.Context, out *pipeline.Outcome) error {
		logger.Info("Applying transfer",
			zap.String("messageId", out.VAA.MessageID()),
			zap.String("fromAddress", out.Transfer.FromAddress.String()),
			zap.String("amount", out.Transfer.Amount.Dec()),
			zap.Int("payloadLength", len(out.Transfer.Payload)))
		return nil
	})
}

// Execute runs one instruction.
func (d *Dispatcher) Execute(ctx context.Context, data []byte) (*Receipt, error) {
	if len(data) == 0 {
		return nil, errs.Malformed("empty instruction")
	}
	op, rest := Op(data[0]), data[1:]

	switch op {
	case OpIncrement:
		n, err := d.counter.Increment(ctx)
		if err != nil {
			return nil, fmt.Errorf("increment counter: %w", err)
		}
		d.logger.Info("Counter incremented", zap.Uint64("count", n))
		return &Receipt{Op: op, Count: n}, nil

	case OpProcessVAA:
		if d.processor == nil {
			return nil, errs.New(errs.KindInternal, "dispatcher has no VAA processor")
		}
		out, err := d.processor.Process(ctx, rest)
		if err != nil {
			return nil, err
		}
		if err := d.applier.Apply(ctx, out); err != nil {
			d.logger.Error("Apply failed; record left unconsumed",
				zap.String("digest", out.Posted.Digest().Hex()),
				zap.Error(err))
			return &Receipt{Op: op, Outcome: out}, fmt.Errorf("apply %s: %w", out.VAA.MessageID(), err)
		}
		if err := out.Consume(); err != nil {
			return &Receipt{Op: op, Outcome: out}, fmt.Errorf("mark consumed: %w", err)
		}
		return &Receipt{Op: op, Outcome: out}, nil

	default:
		return nil, errs.Malformed("unknown instruction %s", op)
	}
}
