// AngelaMos | 2026
// keys.go

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

var ErrKeyMismatch = errors.New("public key does not match private key")

// keyID derives a stable kid from the RFC 7638 thumbprint so every API
// instance holding the same key advertises the same id.
func keyID(key jwk.Key) (string, error) {
	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(thumb)[:16], nil
}

func readPEMKey(path string) (jwk.Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return key, nil
}

// verificationKey turns a public key into a JWKS entry with kid, alg and use.
func verificationKey(pub jwk.Key) (jwk.Key, error) {
	kid, err := keyID(pub)
	if err != nil {
		return nil, err
	}
	for k, v := range map[string]any{
		jwk.KeyIDKey:     kid,
		jwk.AlgorithmKey: jwa.ES256(),
		jwk.KeyUsageKey:  "sig",
	} {
		if err := pub.Set(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}
	return pub, nil
}

// loadSigningKey reads the private key and checks it against the public key
// file when one exists.
func loadSigningKey(privatePath, publicPath string) (signer, public jwk.Key, err error) {
	signer, err = readPEMKey(privatePath)
	if err != nil {
		return nil, nil, err
	}

	public, err = signer.PublicKey()
	if err != nil {
		return nil, nil, fmt.Errorf("derive public key: %w", err)
	}
	if public, err = verificationKey(public); err != nil {
		return nil, nil, err
	}

	if publicPath != "" {
		onDisk, readErr := readPEMKey(publicPath)
		switch {
		case errors.Is(readErr, fs.ErrNotExist):
		case readErr != nil:
			return nil, nil, readErr
		default:
			diskID, idErr := keyID(onDisk)
			if idErr != nil {
				return nil, nil, idErr
			}
			if diskID != kidOf(public) {
				return nil, nil, fmt.Errorf("%s: %w", publicPath, ErrKeyMismatch)
			}
		}
	}

	if err := signer.Set(jwk.KeyIDKey, kidOf(public)); err != nil {
		return nil, nil, fmt.Errorf("set key id: %w", err)
	}
	if err := signer.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, nil, fmt.Errorf("set algorithm: %w", err)
	}

	return signer, public, nil
}

func kidOf(key jwk.Key) string {
	var kid string
	//nolint:errcheck // absent kid reads as empty
	_ = key.Get(jwk.KeyIDKey, &kid)
	return kid
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM. The private key is
// readable by the owner only.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(raw)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	privatePEM, err := jwk.Pem(private)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	publicPEM, err := jwk.Pem(public)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	if err := os.WriteFile(privateKeyPath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	//nolint:gosec // G306: public key is meant to be shared
	if err := os.WriteFile(publicKeyPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}
