// keys — владение асимметричной парой ключей выпускающего сервиса.
//
// Пара создаётся один раз на старте процесса (или загружается из PEM по
// пути из конфигурации) и живёт всё время жизни процесса как неизменяемое
// состояние. Ротация и приём токенов, подписанных предыдущим ключом,
// сознательно не реализованы; точка расширения — keyfunc по kid.
//
// Верификаторы в других сервисах получают только копию публичного ключа;
// приватный ключ за пределы процесса не выдаётся.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/morozovkp/go-taskboard/pkg/authtoken"
)

// Минимальный допустимый размер ключа для долгоживущих подписей.
const minBits = 2048

// Authority держит пару ключей выпускающего процесса.
type Authority struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

var _ authtoken.SigningKeySource = (*Authority)(nil)

// Generate создаёт эфемерную пару RSA-2048 в памяти (локальный запуск,
// тесты). Подписи такой пары не переживают рестарт процесса.
func Generate() (*Authority, error) {
	const op = "keys.Generate"

	priv, err := rsa.GenerateKey(rand.Reader, minBits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Authority{priv: priv, pub: &priv.PublicKey}, nil
}

// Load читает приватный ключ из PEM-файла (PKCS#1 или PKCS#8);
// публичный ключ выводится из приватного.
func Load(privateKeyPath string) (*Authority, error) {
	const op = "keys.Load"

	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block in %q", op, privateKeyPath)
	}

	priv, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if priv.N.BitLen() < minBits {
		return nil, fmt.Errorf("%s: key is %d bits, need >= %d", op, priv.N.BitLen(), minBits)
	}

	return &Authority{priv: priv, pub: &priv.PublicKey}, nil
}

// Signing отдаёт приватный ключ подписи. Доступен только внутри
// выпускающего процесса.
func (a *Authority) Signing() (*rsa.PrivateKey, error) {
	const op = "keys.Signing"

	if a == nil || a.priv == nil {
		return nil, fmt.Errorf("%s: %w", op, authtoken.ErrKeyUnavailable)
	}

	return a.priv, nil
}

// Public отдаёт публичный ключ; после инициализации всегда успешен.
func (a *Authority) Public() (*rsa.PublicKey, error) {
	const op = "keys.Public"

	if a == nil || a.pub == nil {
		return nil, fmt.Errorf("%s: %w", op, authtoken.ErrKeyUnavailable)
	}

	return a.pub, nil
}

// PublicPEM — публичный ключ в PEM (PKIX) для раздачи верификаторам.
func (a *Authority) PublicPEM() ([]byte, error) {
	const op = "keys.PublicPEM"

	pub, err := a.Public()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return authtoken.MarshalPublicKeyPEM(pub)
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return priv, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}

	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}

	return priv, nil
}
