// Package signing computes the digests of a metadata record and signs or
// verifies them through an injected key capability.
//
// A record carries its own signature. To keep the signature out of its own
// pre-image both directions hash the record with the signature field holding
// record.Placeholder: at sealing time because the real value does not exist
// yet, at verification time because the stored value is swapped back on a
// working copy.
package signing

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/SealDrop/internal/record"
)

// Signer produces a signature over a digest. Implementations live in the keys
// package; the engine never holds key material itself.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
}

// Verifier checks a signature over a digest. A nil error means the signature
// is valid.
type Verifier interface {
	Verify(digest, signature []byte) error
}

// Hash maps canonical bytes to a fixed size digest.
type Hash func([]byte) []byte

// SHA256 is the default Hash.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// ErrNotPlaceholder is returned when a sealing digest is requested for a
// record whose signature field was already filled.
var ErrNotPlaceholder = errors.New("signature field does not hold the placeholder")

// Engine derives digests and drives the Signer/Verifier capabilities. The
// zero value hashes with SHA-256.
type Engine struct {
	Hash Hash
}

// NewEngine returns an Engine using SHA-256.
func NewEngine() *Engine {
	return &Engine{Hash: SHA256}
}

func (e *Engine) hash(data []byte) []byte {
	if e == nil || e.Hash == nil {
		return SHA256(data)
	}
	return e.Hash(data)
}

// SealingDigest hashes a record that still holds the placeholder signature.
func (e *Engine) SealingDigest(rec *record.Record) ([]byte, error) {
	sig, ok := rec.Get(record.KeySignature)
	if !ok {
		return nil, record.ErrMissingSignatureKey
	}
	if sig != record.Placeholder {
		return nil, ErrNotPlaceholder
	}
	return e.hash(rec.Canonical()), nil
}

// VerificationDigest hashes a copy of rec whose signature is forced back to
// the placeholder. For an untouched record this reproduces the sealing digest
// exactly. rec itself is left unchanged.
func (e *Engine) VerificationDigest(rec *record.Record) []byte {
	work := rec.Clone()
	work.Set(record.KeySignature, record.Placeholder)
	return e.hash(work.Canonical())
}

// Sign fills the signature field of rec. The returned record is a new value;
// a failing Signer aborts with the error wrapped.
func (e *Engine) Sign(rec *record.Record, signer Signer) (*record.Record, error) {
	if signer == nil {
		return nil, errors.New("sign record: no signer configured")
	}
	digest, err := e.SealingDigest(rec)
	if err != nil {
		return nil, fmt.Errorf("sealing digest: %w", err)
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	if len(sig) == 0 {
		return nil, errors.New("sign digest: empty signature")
	}
	return rec.WithSignature(EncodeSignature(sig))
}

// Check verifies the signature carried by rec. It never panics and never
// returns an error: every failure mode is an Outcome.
func (e *Engine) Check(rec *record.Record, verifier Verifier) Outcome {
	if rec == nil || !rec.Signed() {
		return OutcomeUnsigned
	}
	sig, err := DecodeSignature(rec.Value(record.KeySignature))
	if err != nil {
		return OutcomeMalformed
	}
	if verifier == nil {
		return OutcomeInvalid
	}
	if !safeVerify(verifier, e.VerificationDigest(rec), sig) {
		return OutcomeInvalid
	}
	return OutcomeValid
}

func safeVerify(v Verifier, digest, sig []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return v.Verify(digest, sig) == nil
}

// EncodeSignature renders signature bytes as standard padded base64.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature parses standard padded base64.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) == 0 {
		return nil, errors.New("decode signature: empty")
	}
	return sig, nil
}
