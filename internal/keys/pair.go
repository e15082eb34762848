package keys

import (
	"errors"
	"fmt"
)

// Source says where each half of a key pair comes from. Inline PEM wins over
// a file path.
type Source struct {
	PrivatePEM  string
	PrivatePath string
	PublicPEM   string
	PublicPath  string
}

// Pair is the key material of a running service. Private is nil in verify-only
// deployments.
type Pair struct {
	Private *PrivateKey
	Public  *PublicKey
}

var ErrNoPublicKey = errors.New("no public key configured")

// LoadPair resolves both halves of src. When only a private key is supplied the
// public half is derived from it; when both are supplied they must match.
func LoadPair(src Source) (*Pair, error) {
	var (
		p   Pair
		err error
	)
	switch {
	case src.PrivatePEM != "":
		p.Private, err = ParsePrivateKeyPEM([]byte(src.PrivatePEM))
	case src.PrivatePath != "":
		p.Private, err = LoadPrivateKey(src.PrivatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	switch {
	case src.PublicPEM != "":
		p.Public, err = ParsePublicKeyPEM([]byte(src.PublicPEM))
	case src.PublicPath != "":
		p.Public, err = LoadPublicKey(src.PublicPath)
	case p.Private != nil:
		p.Public = p.Private.Public()
	default:
		return nil, ErrNoPublicKey
	}
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}

	if p.Private != nil {
		if err := MatchPair(p.Private, p.Public); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// CanSign reports whether the pair holds a private key.
func (p *Pair) CanSign() bool {
	return p != nil && p.Private != nil
}
