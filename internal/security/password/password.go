// password — непрозрачная способность "проверить пароль по хэшу".
// Сервисный слой не знает о стратегии хэширования и получает Verifier
// как зависимость конструктора.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier хэширует и проверяет пароли.
type Verifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type bcryptVerifier struct {
	cost int
}

// NewBcrypt — реализация на bcrypt с ценой по умолчанию.
func NewBcrypt() Verifier {
	return &bcryptVerifier{cost: bcrypt.DefaultCost}
}

func (b *bcryptVerifier) Hash(plaintext string) (string, error) {
	const op = "password.bcrypt.Hash"

	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

func (b *bcryptVerifier) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
