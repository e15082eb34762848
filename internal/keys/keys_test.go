package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"path/filepath"
	"testing"
)

func digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func TestGenerateSignVerify(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmECDSA, AlgorithmRSA} {
		t.Run(string(alg), func(t *testing.T) {
			k, err := Generate(alg)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if k.Algorithm() != alg || k.Public().Algorithm() != alg {
				t.Fatalf("algorithm = %s", k.Algorithm())
			}
			sig, err := k.Sign(digest("record"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if err := k.Public().Verify(digest("record"), sig); err != nil {
				t.Fatalf("verify: %v", err)
			}
			if err := k.Public().Verify(digest("other"), sig); !errors.Is(err, ErrSignatureMismatch) {
				t.Fatalf("expected ErrSignatureMismatch, got %v", err)
			}
		})
	}
}

func TestGenerateUnknownAlgorithm(t *testing.T) {
	if _, err := Generate("dsa"); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected ErrUnsupportedKey, got %v", err)
	}
}

func TestSignRejectsWrongDigestSize(t *testing.T) {
	k, _ := Generate(AlgorithmECDSA)
	if _, err := k.Sign([]byte("short")); err == nil {
		t.Fatalf("expected error for short digest")
	}
}

func TestPEMRoundTrip(t *testing.T) {
	k, err := Generate(AlgorithmECDSA)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if err := WritePair(k, privPath, pubPath); err != nil {
		t.Fatalf("write pair: %v", err)
	}
	priv, err := LoadPrivateKey(privPath)
	if err != nil {
		t.Fatalf("load private: %v", err)
	}
	pub, err := LoadPublicKey(pubPath)
	if err != nil {
		t.Fatalf("load public: %v", err)
	}
	if err := MatchPair(priv, pub); err != nil {
		t.Fatalf("match pair: %v", err)
	}
	if pub.Fingerprint() != k.Public().Fingerprint() || pub.Fingerprint() == "" {
		t.Fatalf("fingerprint mismatch")
	}
}

func TestParseLegacyEncodings(t *testing.T) {
	rk, err := rsa.GenerateKey(rand.Reader, MinRSAKeySize)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rk)})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&rk.PublicKey)})
	priv, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		t.Fatalf("parse pkcs1 private: %v", err)
	}
	pub, err := ParsePublicKeyPEM(pubPEM)
	if err != nil {
		t.Fatalf("parse pkcs1 public: %v", err)
	}
	if err := MatchPair(priv, pub); err != nil {
		t.Fatalf("match pair: %v", err)
	}

	ek, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("ec key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(ek)
	if err != nil {
		t.Fatalf("marshal ec: %v", err)
	}
	if _, err := ParsePrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})); err != nil {
		t.Fatalf("parse sec1 private: %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	if _, err := ParsePrivateKeyPEM([]byte("not pem")); !errors.Is(err, ErrNoPEMBlock) {
		t.Fatalf("expected ErrNoPEMBlock, got %v", err)
	}
	enc := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: []byte{1}})
	if _, err := ParsePrivateKeyPEM(enc); !errors.Is(err, ErrEncryptedKey) {
		t.Fatalf("expected ErrEncryptedKey, got %v", err)
	}
	cert := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}})
	if _, err := ParsePublicKeyPEM(cert); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected ErrUnsupportedKey, got %v", err)
	}
	small, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	if _, err := NewPrivateKey(small); !errors.Is(err, ErrRSAKeyTooSmall) {
		t.Fatalf("expected ErrRSAKeyTooSmall, got %v", err)
	}
}

func TestMatchPairRejectsMixedKeys(t *testing.T) {
	ec, _ := Generate(AlgorithmECDSA)
	other, _ := Generate(AlgorithmECDSA)
	if err := MatchPair(ec, other.Public()); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
	rk, _ := Generate(AlgorithmRSA)
	if err := MatchPair(ec, rk.Public()); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch for mixed algorithms, got %v", err)
	}
}

func TestLoadPair(t *testing.T) {
	k, _ := Generate(AlgorithmECDSA)
	privPEM, _ := k.MarshalPEM()
	pubPEM, _ := k.Public().MarshalPEM()

	p, err := LoadPair(Source{PrivatePEM: string(privPEM)})
	if err != nil {
		t.Fatalf("private only: %v", err)
	}
	if !p.CanSign() || !p.Public.Equal(k.Public()) {
		t.Fatalf("public half not derived")
	}

	p, err = LoadPair(Source{PublicPEM: string(pubPEM)})
	if err != nil {
		t.Fatalf("public only: %v", err)
	}
	if p.CanSign() {
		t.Fatalf("verify-only pair can sign")
	}

	other, _ := Generate(AlgorithmECDSA)
	otherPub, _ := other.Public().MarshalPEM()
	if _, err := LoadPair(Source{PrivatePEM: string(privPEM), PublicPEM: string(otherPub)}); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
	if _, err := LoadPair(Source{}); !errors.Is(err, ErrNoPublicKey) {
		t.Fatalf("expected ErrNoPublicKey, got %v", err)
	}
	if _, err := LoadPair(Source{PrivatePath: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
