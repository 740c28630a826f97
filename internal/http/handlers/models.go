// Входные/выходные модели REST-эндпоинтов.
package handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type confirmRequest struct {
	UserID string `json:"user_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type authResponse struct {
	UserID          string `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"` // Unix UTC
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	UserType string `json:"user_type,omitempty"`
	Email    string `json:"email,omitempty"`
}

type externalLoginRequest struct {
	// Attributes — сырые атрибуты, уже полученные от провайдера
	// (OAuth2-обмен выполняет вызывающий сервис).
	Attributes map[string]any `json:"attributes"`
}
