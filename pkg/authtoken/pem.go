package authtoken

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ParsePublicKeyPEM разбирает PEM-блок с публичным ключом (PKIX).
// Именно в этом формате выпускающий сервис раздаёт ключ верификаторам.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	const op = "authtoken.ParsePublicKeyPEM"

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found", op)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, errors.New("not an RSA public key"))
	}

	return pub, nil
}

// MarshalPublicKeyPEM сериализует публичный ключ в PEM (PKIX).
func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	const op = "authtoken.MarshalPublicKeyPEM"

	if pub == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrKeyUnavailable)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
