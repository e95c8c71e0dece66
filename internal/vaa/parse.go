package vaa

import (
	"encoding/binary"

	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
)

// Parse decodes a wire-format VAA. It is strict: unsupported version,
// a truncated signature block, a short body, or signature indices that are
// not strictly increasing all fail with Malformed and return no VAA.
//
// Layout:
//
//	0:     version
//	1-4:   guardian set index
//	5:     signature count
//	6+:    signatures, 66 bytes each (guardian index + r + s + v)
//	after: body (timestamp, nonce, emitter chain, emitter address,
//	       sequence, consistency level, payload)
func Parse(data []byte) (*VAA, error) {
	if len(data) < headerLen {
		return nil, errs.Malformed("VAA too short: %d bytes", len(data))
	}

	version := data[0]
	if version != Version {
		return nil, errs.Malformed("unsupported VAA version: %d", version)
	}

	guardianSetIndex := binary.BigEndian.Uint32(data[1:5])
	signatureCount := int(data[5])

	signaturesEnd := headerLen + signatureCount*signatureLen
	if len(data) < signaturesEnd {
		return nil, errs.Malformed("VAA too short for %d signatures: %d bytes", signatureCount, len(data))
	}

	signatures := make([]Signature, signatureCount)
	for i := 0; i < signatureCount; i++ {
		start := headerLen + i*signatureLen
		index := data[start]
		if i > 0 && index <= signatures[i-1].GuardianIndex {
			return nil, errs.Malformed("signature %d has guardian index %d, not above previous %d",
				i, index, signatures[i-1].GuardianIndex)
		}
		signatures[i].GuardianIndex = index
		copy(signatures[i].Data[:], data[start+1:start+signatureLen])
	}

	body, err := parseBody(data[signaturesEnd:])
	if err != nil {
		return nil, err
	}

	return &VAA{
		Version:          version,
		GuardianSetIndex: guardianSetIndex,
		Signatures:       signatures,
		Body:             *body,
	}, nil
}

func parseBody(body []byte) (*Body, error) {
	if len(body) < bodyFixedLen {
		return nil, errs.Malformed("VAA body too short: %d bytes", len(body))
	}

	b := &Body{
		Timestamp:        binary.BigEndian.Uint32(body[0:4]),
		Nonce:            binary.BigEndian.Uint32(body[4:8]),
		EmitterChain:     vaaLib.ChainID(binary.BigEndian.Uint16(body[8:10])),
		Sequence:         binary.BigEndian.Uint64(body[42:50]),
		ConsistencyLevel: body[50],
	}
	copy(b.EmitterAddress[:], body[10:42])

	// Copy so the parsed value does not alias the caller's buffer.
	b.Payload = make([]byte, len(body)-bodyFixedLen)
	copy(b.Payload, body[bodyFixedLen:])
	return b, nil
}
