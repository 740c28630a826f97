// identity — приведение сырых атрибутов внешнего identity-провайдера к
// стабильной паре (external id, email) + атрибутам профиля.
//
// Сам OAuth2-обмен (code -> attributes) выполняется снаружи; здесь только
// маппинг уже полученных атрибутов.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProvider — провайдер не сконфигурирован.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrIncompleteAttributes — провайдер не вернул стабильный id или email.
	ErrIncompleteAttributes = errors.New("incomplete identity attributes")
)

// External — разрешённая внешняя идентичность.
type External struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

// Resolver превращает (provider, raw attributes) во External.
type Resolver interface {
	Resolve(provider string, attrs map[string]any) (*External, error)
}

// providerKeys — имена полей в ответе конкретного провайдера.
type providerKeys struct {
	id     string
	email  string
	name   string
	avatar string
}

type mapResolver struct {
	providers map[string]providerKeys
}

// NewResolver — резолвер для поддерживаемых провайдеров.
func NewResolver() Resolver {
	return &mapResolver{
		providers: map[string]providerKeys{
			"google": {id: "sub", email: "email", name: "name", avatar: "picture"},
			"github": {id: "id", email: "email", name: "name", avatar: "avatar_url"},
		},
	}
}

func (m *mapResolver) Resolve(provider string, attrs map[string]any) (*External, error) {
	const op = "identity.Resolve"

	keys, ok := m.providers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, provider, ErrUnknownProvider)
	}

	id := stringAttr(attrs, keys.id)
	email := strings.ToLower(strings.TrimSpace(stringAttr(attrs, keys.email)))
	if id == "" || email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrIncompleteAttributes)
	}

	return &External{
		Provider:   strings.ToLower(provider),
		ExternalID: id,
		Email:      email,
		Name:       stringAttr(attrs, keys.name),
		AvatarURL:  stringAttr(attrs, keys.avatar),
	}, nil
}

// stringAttr достаёт атрибут как строку; числовые id (github) приводятся.
func stringAttr(attrs map[string]any, key string) string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		// json.Unmarshal отдаёт числа как float64.
		return strings.TrimSuffix(fmt.Sprintf("%.0f", t), ".0")
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return ""
	}
}
