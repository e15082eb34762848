// Package keys loads, generates and wraps the asymmetric key pair used to seal
// documents. Each key pair uses one algorithm end to end: RSA keys sign with
// PKCS#1 v1.5 over SHA-256 digests, ECDSA keys produce ASN.1 signatures.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Algorithm names a supported signature scheme.
type Algorithm string

const (
	AlgorithmECDSA Algorithm = "ecdsa"
	AlgorithmRSA   Algorithm = "rsa"
)

// MinRSAKeySize is the minimum supported RSA key size in bits.
const MinRSAKeySize = 2048

var (
	ErrNoPEMBlock        = errors.New("no PEM block found")
	ErrEncryptedKey      = errors.New("encrypted private keys are not supported")
	ErrUnsupportedKey    = errors.New("unsupported key type")
	ErrRSAKeyTooSmall    = errors.New("RSA key size too small: minimum 2048 bits required")
	ErrKeyMismatch       = errors.New("public key does not belong to private key")
	ErrSignatureMismatch = errors.New("signature does not match digest")
)

// PrivateKey signs digests. It satisfies signing.Signer.
type PrivateKey struct {
	key crypto.Signer
	alg Algorithm
}

// PublicKey verifies digests. It satisfies signing.Verifier.
type PublicKey struct {
	key crypto.PublicKey
	alg Algorithm
}

// Generate creates a new key pair. ECDSA keys use P-256, RSA keys 3072 bits.
func Generate(alg Algorithm) (*PrivateKey, error) {
	switch alg {
	case AlgorithmECDSA:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ecdsa key: %w", err)
		}
		return &PrivateKey{key: k, alg: AlgorithmECDSA}, nil
	case AlgorithmRSA:
		k, err := rsa.GenerateKey(rand.Reader, 3072)
		if err != nil {
			return nil, fmt.Errorf("generate rsa key: %w", err)
		}
		return &PrivateKey{key: k, alg: AlgorithmRSA}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, alg)
	}
}

// NewPrivateKey wraps an existing RSA or ECDSA key.
func NewPrivateKey(k crypto.Signer) (*PrivateKey, error) {
	switch v := k.(type) {
	case *rsa.PrivateKey:
		if v.N.BitLen() < MinRSAKeySize {
			return nil, ErrRSAKeyTooSmall
		}
		return &PrivateKey{key: v, alg: AlgorithmRSA}, nil
	case *ecdsa.PrivateKey:
		return &PrivateKey{key: v, alg: AlgorithmECDSA}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k)
	}
}

// NewPublicKey wraps an existing RSA or ECDSA public key.
func NewPublicKey(k crypto.PublicKey) (*PublicKey, error) {
	switch v := k.(type) {
	case *rsa.PublicKey:
		if v.N.BitLen() < MinRSAKeySize {
			return nil, ErrRSAKeyTooSmall
		}
		return &PublicKey{key: v, alg: AlgorithmRSA}, nil
	case *ecdsa.PublicKey:
		return &PublicKey{key: v, alg: AlgorithmECDSA}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k)
	}
}

// Algorithm reports the key's scheme.
func (k *PrivateKey) Algorithm() Algorithm { return k.alg }

// Algorithm reports the key's scheme.
func (k *PublicKey) Algorithm() Algorithm { return k.alg }

// Public returns the matching public key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: k.key.Public(), alg: k.alg}
}

// Sign signs a SHA-256 digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("sign: digest is %d bytes, want %d", len(digest), sha256.Size)
	}
	sig, err := k.key.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", k.alg, err)
	}
	return sig, nil
}

// Verify checks sig over a SHA-256 digest.
func (k *PublicKey) Verify(digest, sig []byte) error {
	switch pub := k.key.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig); err != nil {
			return ErrSignatureMismatch
		}
		return nil
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, sig) {
			return ErrSignatureMismatch
		}
		return nil
	default:
		return ErrUnsupportedKey
	}
}

// Equal reports whether both wrap the same public key.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return false
	}
	eq, ok := k.key.(interface{ Equal(crypto.PublicKey) bool })
	return ok && eq.Equal(other.key)
}

// Fingerprint is the hex SHA-256 of the PKIX encoding of the key.
func (k *PublicKey) Fingerprint() string {
	der, err := x509.MarshalPKIXPublicKey(k.key)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// MatchPair fails with ErrKeyMismatch unless pub belongs to priv.
func MatchPair(priv *PrivateKey, pub *PublicKey) error {
	if !priv.Public().Equal(pub) {
		return ErrKeyMismatch
	}
	return nil
}

// ParsePrivateKeyPEM accepts PKCS#8, PKCS#1 (RSA) and SEC 1 (EC) blocks.
func ParsePrivateKeyPEM(data []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	var (
		parsed any
		err    error
	)
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	case "ENCRYPTED PRIVATE KEY":
		return nil, ErrEncryptedKey
	default:
		return nil, fmt.Errorf("%w: PEM type %q", ErrUnsupportedKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, parsed)
	}
	return NewPrivateKey(signer)
}

// ParsePublicKeyPEM accepts PKIX and PKCS#1 (RSA) blocks.
func ParsePublicKeyPEM(data []byte) (*PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	var (
		parsed any
		err    error
	)
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		parsed, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: PEM type %q", ErrUnsupportedKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return NewPublicKey(parsed)
}

// MarshalPEM encodes the private key as a PKCS#8 PEM block.
func (k *PrivateKey) MarshalPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// MarshalPEM encodes the public key as a PKIX PEM block.
func (k *PublicKey) MarshalPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.key)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// LoadPrivateKey reads a PEM private key from path.
func LoadPrivateKey(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParsePrivateKeyPEM(data)
}

// LoadPublicKey reads a PEM public key from path.
func LoadPublicKey(path string) (*PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParsePublicKeyPEM(data)
}

// WritePair writes both halves of k as PEM files. The private key file is
// readable by the owner only.
func WritePair(k *PrivateKey, privPath, pubPath string) error {
	privPEM, err := k.MarshalPEM()
	if err != nil {
		return err
	}
	pubPEM, err := k.Public().MarshalPEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}
