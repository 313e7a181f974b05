package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/zeebo/xxh3"
)

// Framed deltas start with envelopeMagic, a uvarint header length and a
// CBOR header. Anything else is treated as a raw bsdiff patch.
const envelopeMagic = "GBDF"

const envelopeVersion = 1

// Payload modes.
const (
	modeBsdiff  = "bsdiff"
	modeLiteral = "literal"
)

type envelopeHeader struct {
	Version    int    `cbor:"v"`
	Mode       string `cbor:"mode"`
	BaseSize   int64  `cbor:"base_size"`
	BaseSum    uint64 `cbor:"base_sum"`
	TargetSize int64  `cbor:"target_size"`
	TargetSum  uint64 `cbor:"target_sum"`
}

var headerEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err) // Only fails on invalid static options.
	}
	return em
}()

// Diff computes a framed delta transforming old into new. When either side
// is empty, or the patch is no smaller than new, the payload is the literal
// target bytes.
func Diff(old, new []byte) ([]byte, error) {
	out, err := diff(old, new)
	if err != nil {
		return nil, backuperr.Codec("diff", "", err)
	}
	return out, nil
}

// Patch applies a delta produced by Diff to base. It fails with a
// CodecError wrapping ErrWrongBase when base is not the file the delta was
// produced from, and ErrCorruptDelta when the delta cannot be decoded or
// does not reproduce the recorded target.
func Patch(base, delta []byte) ([]byte, error) {
	out, err := patch(base, delta)
	if err != nil {
		return nil, backuperr.Codec("patch", "", err)
	}
	return out, nil
}

func diff(old, new []byte) ([]byte, error) {
	h := envelopeHeader{
		Version:    envelopeVersion,
		Mode:       modeLiteral,
		BaseSize:   int64(len(old)),
		BaseSum:    xxh3.Hash(old),
		TargetSize: int64(len(new)),
		TargetSum:  xxh3.Hash(new),
	}
	payload := new

	if len(old) > 0 && len(new) > 0 {
		p, err := bsdiff.Bytes(old, new)
		if err != nil {
			return nil, fmt.Errorf("computing bsdiff: %w", err)
		}
		if len(p) < len(new) {
			h.Mode = modeBsdiff
			payload = p
		}
	}

	hdr, err := headerEncMode.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding delta header: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(envelopeMagic) + binary.MaxVarintLen64 + len(hdr) + len(payload))
	buf.WriteString(envelopeMagic)
	var lenBuf [binary.MaxVarintLen64]byte
	buf.Write(lenBuf[:binary.PutUvarint(lenBuf[:], uint64(len(hdr)))])
	buf.Write(hdr)
	buf.Write(payload)
	return buf.Bytes(), nil
}

func patch(base, delta []byte) ([]byte, error) {
	if !bytes.HasPrefix(delta, []byte(envelopeMagic)) {
		// Raw bsdiff patch from an older backup. There is no base
		// fingerprint to check against.
		out, err := bspatch.Bytes(base, delta)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backuperr.ErrCorruptDelta, err)
		}
		return out, nil
	}

	h, payload, err := openEnvelope(delta[len(envelopeMagic):])
	if err != nil {
		return nil, err
	}

	if int64(len(base)) != h.BaseSize || xxh3.Hash(base) != h.BaseSum {
		return nil, fmt.Errorf("%w (base is %d bytes, delta expects %d)",
			backuperr.ErrWrongBase, len(base), h.BaseSize)
	}

	var out []byte
	switch h.Mode {
	case modeLiteral:
		out = append([]byte(nil), payload...)
	case modeBsdiff:
		if out, err = bspatch.Bytes(base, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", backuperr.ErrCorruptDelta, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown payload mode %q", backuperr.ErrCorruptDelta, h.Mode)
	}

	if int64(len(out)) != h.TargetSize || xxh3.Hash(out) != h.TargetSum {
		return nil, fmt.Errorf("%w: reconstructed file does not match the recorded checksum",
			backuperr.ErrCorruptDelta)
	}
	return out, nil
}

func openEnvelope(b []byte) (envelopeHeader, []byte, error) {
	var h envelopeHeader

	n, k := binary.Uvarint(b)
	if k <= 0 || n > uint64(len(b)-k) {
		return h, nil, fmt.Errorf("%w: bad header length", backuperr.ErrCorruptDelta)
	}
	hdr := b[k : k+int(n)]
	if err := cbor.Unmarshal(hdr, &h); err != nil {
		return h, nil, fmt.Errorf("%w: decoding header: %v", backuperr.ErrCorruptDelta, err)
	}
	if h.Version != envelopeVersion {
		return h, nil, fmt.Errorf("%w: unsupported envelope version %d", backuperr.ErrCorruptDelta, h.Version)
	}
	return h, b[k+int(n):], nil
}
