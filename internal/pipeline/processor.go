package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/guardian"
	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/replay"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
	"github.com/wormhole-demo/vaa-verifier/internal/verify"
)

// ErrFiltered is returned for VAAs outside the configured emitter filter.
// It is policy, not a verification failure, and nothing is posted.
var ErrFiltered = errors.New("VAA filtered by emitter policy")

// State is a position in a VAA's lifecycle. Rejected and Consumed are terminal.
type State int

const (
	StateReceived State = iota
	StateParsed
	StateVerified
	StatePosted
	StateConsumed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateParsed:
		return "Parsed"
	case StateVerified:
		return "Verified"
	case StatePosted:
		return "Posted"
	case StateConsumed:
		return "Consumed"
	case StateRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// VAAProcessor runs raw VAA bytes through verification and posting.
type VAAProcessor interface {
	Process(ctx context.Context, raw []byte) (*Outcome, error)
}

type Config struct {
	Registry guardian.Registry
	Store    replay.Store
	// Clock supplies the processing time used for guardian set expiry.
	// Defaults to time.Now.
	Clock func() time.Time
	// RequirePayloadID expects the token bridge's leading payload id byte.
	RequirePayloadID bool
	// EmitterChains restricts accepted emitter chains; empty accepts all.
	EmitterChains []uint16
	// EmitterAddress restricts the emitter (hex, optional 0x, left-padded
	// to 32 bytes); empty accepts all.
	EmitterAddress string
}

// Outcome is the result of a successful Process call.
type Outcome struct {
	State        State
	VAA          *vaa.VAA
	Verification *verify.Result
	Transfer     *payload.TransferWithPayload
	Posted       *replay.Posted

	metrics *Metrics
}

// Consume marks the posted record consumed after downstream work succeeded.
// It is safe to call repeatedly.
func (o *Outcome) Consume() error {
	if o.Posted == nil {
		return errs.New(errs.KindNotFound, "outcome has no posted record")
	}
	if err := o.Posted.MarkConsumed(); err != nil {
		return err
	}
	if o.State != StateConsumed {
		o.State = StateConsumed
		o.metrics.recordConsumed()
	}
	return nil
}

type Processor struct {
	config  Config
	chains  map[uint16]struct{}
	logger  *zap.Logger
	metrics *Metrics
}

var _ VAAProcessor = (*Processor)(nil)

func New(logger *zap.Logger, config Config, metrics *Metrics) (*Processor, error) {
	if config.Registry == nil {
		return nil, errors.New("pipeline: guardian registry is required")
	}
	if config.Store == nil {
		return nil, errors.New("pipeline: replay store is required")
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	config.EmitterAddress = NormalizeEmitter(config.EmitterAddress)

	var chains map[uint16]struct{}
	if len(config.EmitterChains) > 0 {
		chains = make(map[uint16]struct{}, len(config.EmitterChains))
		for _, c := range config.EmitterChains {
			chains[c] = struct{}{}
		}
	}

	return &Processor{
		config:  config,
		chains:  chains,
		logger:  logger.With(zap.String("component", "Processor")),
		metrics: metrics,
	}, nil
}

// NormalizeEmitter strips 0x, lowercases, and left-pads to 64 hex chars.
func NormalizeEmitter(addr string) string {
	if addr == "" {
		return ""
	}
	addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
	if len(addr) < 64 {
		addr = strings.Repeat("0", 64-len(addr)) + addr
	}
	return addr
}

// Process parses, verifies, decodes, and posts raw. The payload is decoded
// before the replay guard is touched so that any failure leaves no record.
func (p *Processor) Process(ctx context.Context, raw []byte) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("processing cancelled: %w", err)
	}

	out, err := p.process(raw)
	if err != nil {
		p.metrics.recordOutcome(outcomeLabel(err))
		return nil, err
	}
	p.metrics.recordOutcome("posted")
	return out, nil
}

func (p *Processor) process(raw []byte) (*Outcome, error) {
	v, err := vaa.Parse(raw)
	if err != nil {
		p.logger.Debug("Rejected VAA at parse", zap.Int("length", len(raw)), zap.Error(err))
		return nil, err
	}
	LogVAAFull(p.logger, v)

	if err := p.filter(v); err != nil {
		p.logger.Debug("Skipping VAA", zap.String("messageId", v.MessageID()), zap.Error(err))
		return nil, err
	}

	now := p.config.Clock()
	start := time.Now()
	res, err := verify.WithRegistry(v, p.config.Registry, now)
	if err != nil {
		p.logger.Warn("Rejected VAA at verification",
			zap.String("messageId", v.MessageID()),
			zap.Uint32("guardianSetIndex", v.GuardianSetIndex),
			zap.Error(err))
		return nil, err
	}
	p.metrics.recordVerification(time.Since(start), len(res.Valid))
	if len(res.Rejections) > 0 {
		p.logger.Warn("Tolerated invalid guardian signatures",
			zap.String("messageId", v.MessageID()),
			zap.Int("invalid", len(res.Rejections)),
			zap.Int("valid", len(res.Valid)),
			zap.Int("quorum", res.Quorum),
			zap.Error(res.Tolerated()))
	}

	transfer, err := p.decode(v.Body.Payload)
	if err != nil {
		p.logger.Warn("Rejected VAA payload",
			zap.String("messageId", v.MessageID()),
			zap.Error(err))
		return nil, err
	}
	LogTransfer(p.logger, transfer)

	posted, err := p.config.Store.PostOrReject(res.Digest)
	if err != nil {
		p.logger.Info("VAA not posted",
			zap.String("messageId", v.MessageID()),
			zap.String("digest", res.Digest.Hex()),
			zap.Error(err))
		return nil, err
	}

	p.logger.Info("VAA posted",
		zap.String("messageId", v.MessageID()),
		zap.String("digest", res.Digest.Hex()),
		zap.Int("validSignatures", len(res.Valid)),
		zap.String("amount", transfer.Amount.Dec()),
		zap.Uint16("toChain", uint16(transfer.ToChain)))

	return &Outcome{
		State:        StatePosted,
		VAA:          v,
		Verification: res,
		Transfer:     transfer,
		Posted:       posted,
		metrics:      p.metrics,
	}, nil
}

func (p *Processor) filter(v *vaa.VAA) error {
	chain := uint16(v.Body.EmitterChain)
	if p.chains != nil {
		if _, ok := p.chains[chain]; !ok {
			return fmt.Errorf("%w: emitter chain %d not configured", ErrFiltered, chain)
		}
	}
	if p.config.EmitterAddress != "" {
		emitter := fmt.Sprintf("%x", v.Body.EmitterAddress[:])
		if emitter != p.config.EmitterAddress {
			return fmt.Errorf("%w: emitter %s, expected %s", ErrFiltered, emitter, p.config.EmitterAddress)
		}
	}
	return nil
}

func (p *Processor) decode(data []byte) (*payload.TransferWithPayload, error) {
	if p.config.RequirePayloadID {
		return payload.DecodeWithID(data)
	}
	return payload.Decode(data)
}

func outcomeLabel(err error) string {
	if errors.Is(err, ErrFiltered) {
		return "filtered"
	}
	if k := errs.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
