package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/morozovkp/go-taskboard/internal/errors"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		UserID: user.ID.String(),
		Status: string(user.Status),
	})
}

func (h *Handlers) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var in confirmRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	uid, err := uuid.Parse(in.UserID)
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.service.ConfirmEmail(r.Context(), uid); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{Ok: true})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, uid, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponseFrom(uid.String(), pair))
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, uid, err := h.service.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponseFrom(uid.String(), pair))
}

// Logout отзывает пару токенов. Частичного успеха не бывает: либо оба jti
// зафиксированы в registry, либо ни один (см. service.Logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in logoutRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), in.AccessToken, in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{Ok: true})
}

// Validate валидирует access-токен.
// Контракт: при невалидном/просроченном/отозванном токене HTTP-ошибки нет —
// отдаётся {valid:false}. Прочие ошибки — через общий маппинг.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var in validateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	cs, err := h.service.ValidateToken(r.Context(), in.AccessToken)
	if err != nil {
		if errors.Is(err, authtoken.ErrTokenMalformed) ||
			errors.Is(err, authtoken.ErrTokenExpired) ||
			errors.Is(err, authtoken.ErrTokenInvalidated) {
			writeJSON(w, http.StatusOK, validateResponse{Valid: false})
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:    true,
		UserID:   cs.UserID.String(),
		UserType: cs.UserType,
		Email:    cs.Email,
	})
}

func (h *Handlers) ExternalLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var in externalLoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, user, err := h.service.ExternalLogin(r.Context(), provider, in.Attributes)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponseFrom(user.ID.String(), pair))
}

// PublicKey раздаёт публичный ключ в PEM: единственное, что нужно другому
// сервису для локальной верификации подписей.
func (h *Handlers) PublicKey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.publicPEM)
}

func authResponseFrom(userID string, pair *authtoken.TokenPair) authResponse {
	return authResponse{
		UserID:          userID,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
	}
}
