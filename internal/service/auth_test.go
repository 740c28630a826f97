package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/morozovkp/go-taskboard/internal/config"
	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/keys"
	"github.com/morozovkp/go-taskboard/internal/models"
	"github.com/morozovkp/go-taskboard/internal/security/password"
	"github.com/morozovkp/go-taskboard/internal/storage"
	"github.com/morozovkp/go-taskboard/mocks"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
	"github.com/morozovkp/go-taskboard/pkg/invalidation"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
		Audience:        []string{"taskboard"},
		Leeway:          2 * time.Second,
	}
}

// newSvc собирает полный Service поверх mock-хранилища: подпись настоящая
// (эфемерная пара RSA), реестр отзыва — in-memory.
func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	authority, err := keys.Generate()
	require.NoError(t, err)

	cfg := testCfg()
	opts := authtoken.Options{Issuer: cfg.Issuer, Audience: cfg.Audience, Leeway: cfg.Leeway}

	registry := invalidation.NewMemoryRegistry()
	issuer := authtoken.NewIssuer(authority, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, opts)

	pub, err := authority.Public()
	require.NoError(t, err)
	verifier := authtoken.NewVerifier(pub, registry, opts)

	svc := New(st, issuer, verifier, registry, password.NewBcrypt(), identity.NewResolver(), cfg)
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, svc *Service, pw string) string {
	t.Helper()
	h, err := svc.passwords.Hash(pw)
	require.NoError(t, err)
	return h
}

func activeUser(t *testing.T, svc *Service, email, pw string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHashPW(t, svc, pw),
		UserType:     models.UserTypeMember,
		Status:       models.StatusActive,
		Provider:     models.ProviderLocal,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	pair, uid, err := svc.Login(ctx, " User@Example.com ", pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.WithinDuration(t, time.Now().Add(testCfg().AccessTokenTTL), pair.AccessExpiresAt, 2*time.Second)

	// Выпущенный access проходит верификацию и несёт идентичность.
	cs, err := svc.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, cs.UserID)
	require.Equal(t, user.Email, cs.Email)
	require.Equal(t, models.UserTypeMember, cs.UserType)
}

func TestLogin_UserNotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "ghost@example.com").Return(nil, storage.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := activeUser(t, svc, "user@example.com", "Abcdef1!")
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err := svc.Login(context.Background(), "user@example.com", "Wrong1!pw")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPasswordNotValid)
}

func TestLogin_StatusNotValid(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, status := range []models.UserStatus{models.StatusPending, models.StatusSuspended} {
		pw := "Abcdef1!"
		user := activeUser(t, svc, "user@example.com", pw)
		user.Status = status

		st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

		_, _, err := svc.Login(context.Background(), "user@example.com", pw)
		require.Error(t, err, "status=%s", status)
		require.ErrorIs(t, err, ErrUserStatusNotValid)
	}
}

func TestRefresh_OK_RefreshUnchanged(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	pair, _, err := svc.Login(ctx, "user@example.com", pw)
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	renewed, uid, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)

	// Refresh не ротируется; access — новый.
	require.Equal(t, pair.RefreshToken, renewed.RefreshToken)
	require.NotEqual(t, pair.AccessToken, renewed.AccessToken)
}

func TestRefresh_Malformed(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	require.ErrorIs(t, err, authtoken.ErrTokenMalformed)
}

func TestRefresh_ExpiredToken_NoIssuance(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Корректно подписанный, но просроченный refresh: собираем сервис
	// с отрицательными TTL и нулевым leeway вокруг одной ключевой пары.
	st := mocks.NewMockStorage(ctrl)

	authority, err := keys.Generate()
	require.NoError(t, err)

	cfg := testCfg()
	cfg.Leeway = 0
	opts := authtoken.Options{Issuer: cfg.Issuer, Audience: cfg.Audience, Leeway: cfg.Leeway}

	registry := invalidation.NewMemoryRegistry()
	issuer := authtoken.NewIssuer(authority, -time.Minute, -time.Minute, opts)

	pub, err := authority.Public()
	require.NoError(t, err)
	verifier := authtoken.NewVerifier(pub, registry, opts)

	svc := New(st, issuer, verifier, registry, password.NewBcrypt(), identity.NewResolver(), cfg)

	user := activeUser(t, svc, "late@example.com", "Abcdef1!")
	pair, err := issuer.Issue(context.Background(), authtoken.ClaimSet{
		UserID:   user.ID,
		Email:    user.Email,
		UserType: user.UserType,
	})
	require.NoError(t, err)

	// Никаких EXPECT на storage: до хранилища дело дойти не должно,
	// выпуска нового access — тоже.
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	require.ErrorIs(t, err, authtoken.ErrTokenExpired)
}

func TestRefresh_UserGoneOrInactive(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil).Times(2)

	t.Run("user deleted", func(t *testing.T) {
		pair, _, err := svc.Login(ctx, "user@example.com", pw)
		require.NoError(t, err)

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, storage.ErrNotFound)

		_, _, err = svc.Refresh(ctx, pair.RefreshToken)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("user suspended", func(t *testing.T) {
		pair, _, err := svc.Login(ctx, "user@example.com", pw)
		require.NoError(t, err)

		suspended := *user
		suspended.Status = models.StatusSuspended
		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&suspended, nil)

		_, _, err = svc.Refresh(ctx, pair.RefreshToken)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrUserStatusNotValid)
	})
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	pair, _, err := svc.Login(ctx, "user@example.com", pw)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	// После logout оба токена отозваны.
	_, err = svc.ValidateToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, authtoken.ErrTokenInvalidated)

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, authtoken.ErrTokenInvalidated)

	// Повторный logout той же пары — отказ: refresh уже в реестре.
	err = svc.Logout(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, authtoken.ErrTokenInvalidated)
}

func TestLogout_PartialSetRejectedWithoutSideEffects(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil).Times(2)

	first, _, err := svc.Login(ctx, "user@example.com", pw)
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, "user@example.com", pw)
	require.NoError(t, err)

	// Отзываем первую пару целиком.
	require.NoError(t, svc.Logout(ctx, first.AccessToken, first.RefreshToken))

	// Logout набора {свежий access, уже отозванный refresh} — отказ...
	err = svc.Logout(ctx, second.AccessToken, first.RefreshToken)
	require.Error(t, err)
	require.ErrorIs(t, err, authtoken.ErrTokenInvalidated)

	// ...и свежий access при этом не пострадал.
	_, err = svc.ValidateToken(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestLogout_MalformedMember(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := activeUser(t, svc, "user@example.com", pw)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	pair, _, err := svc.Login(ctx, "user@example.com", pw)
	require.NoError(t, err)

	err = svc.Logout(ctx, pair.AccessToken, "garbage")
	require.Error(t, err)
	require.ErrorIs(t, err, authtoken.ErrTokenMalformed)

	// Валидный член набора остаётся в силе.
	_, err = svc.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)
}
