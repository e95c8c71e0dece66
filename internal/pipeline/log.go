package pipeline

import (
	"encoding/hex"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// LogVAAFull logs all fields of a VAA for debugging
func LogVAAFull(logger *zap.Logger, v *vaa.VAA) {
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}

	logger.Debug("=== Full VAA Details ===",
		zap.Uint8("version", v.Version),
		zap.Uint32("guardianSetIndex", v.GuardianSetIndex),
		zap.Int("signatureCount", len(v.Signatures)),
		zap.Uint32("timestamp", v.Body.Timestamp),
		zap.Uint32("nonce", v.Body.Nonce),
		zap.Uint64("sequence", v.Body.Sequence),
		zap.Uint8("consistencyLevel", v.Body.ConsistencyLevel),
		zap.Uint16("emitterChain", uint16(v.Body.EmitterChain)),
		zap.String("emitterAddress", hex.EncodeToString(v.Body.EmitterAddress[:])),
		zap.Int("payloadLength", len(v.Body.Payload)),
		zap.String("payloadHex", hex.EncodeToString(v.Body.Payload)),
		zap.String("digest", v.Digest().Hex()),
	)

	for i, sig := range v.Signatures {
		logger.Debug("VAA Signature",
			zap.Int("index", i),
			zap.Uint8("guardianIndex", sig.GuardianIndex),
			zap.String("signature", hex.EncodeToString(sig.Data[:])),
		)
	}
}

// LogTransfer logs a decoded transfer at debug level
func LogTransfer(logger *zap.Logger, t *payload.TransferWithPayload) {
	logger.Debug("Transfer payload", zap.Any("transfer", t.Fields()))
}
