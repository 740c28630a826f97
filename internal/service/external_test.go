package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/models"
	"github.com/morozovkp/go-taskboard/internal/storage"
)

func googleAttrs(email string) map[string]any {
	return map[string]any{
		"sub":     "google-sub-1",
		"email":   email,
		"name":    "Test User",
		"picture": "https://example.com/a.png",
	}
}

func TestExternalLogin_FirstLoginCreatesActiveUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByEmail(gomock.Any(), "new@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) error {
			require.Equal(t, "new@example.com", u.Email)
			// Внешняя идентичность подтверждает e-mail: запись сразу активна.
			require.Equal(t, models.StatusActive, u.Status)
			require.Equal(t, models.ProviderGoogle, u.Provider)
			require.Equal(t, "google-sub-1", u.ExternalID)
			require.Empty(t, u.PasswordHash)
			require.Equal(t, int64(1), u.Version)
			return nil
		})

	pair, user, err := svc.ExternalLogin(ctx, "google", googleAttrs("new@example.com"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestExternalLogin_ExistingUserProfileUpdated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	existing := activeUser(t, svc, "old@example.com", "Abcdef1!")
	existing.Provider = models.ProviderGoogle
	existing.ExternalID = "google-sub-1"
	existing.Version = 3

	st.EXPECT().UserByEmail(gomock.Any(), "old@example.com").Return(existing, nil)
	st.EXPECT().UpdateUserProfile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) error {
			require.Equal(t, existing.ID, u.ID)
			require.Equal(t, "Test User", u.Name)
			require.Equal(t, "https://example.com/a.png", u.AvatarURL)
			require.Equal(t, int64(3), u.Version)
			return nil
		})

	_, user, err := svc.ExternalLogin(ctx, "google", googleAttrs("old@example.com"))
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID)
}

func TestExternalLogin_ProviderMismatch_NoMutation(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	existing := activeUser(t, svc, "bound@example.com", "Abcdef1!")
	existing.Provider = models.ProviderGithub

	// Никаких EXPECT на UpdateUserProfile/SaveUser: мутаций быть не должно.
	st.EXPECT().UserByEmail(gomock.Any(), "bound@example.com").Return(existing, nil)

	_, _, err := svc.ExternalLogin(ctx, "google", googleAttrs("bound@example.com"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProviderMismatch)
	// Сообщение называет исходный провайдер.
	require.Contains(t, err.Error(), models.ProviderGithub)
}

func TestExternalLogin_ConcurrentUpdate(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("version conflict on update", func(t *testing.T) {
		existing := activeUser(t, svc, "racy@example.com", "Abcdef1!")
		existing.Provider = models.ProviderGoogle

		st.EXPECT().UserByEmail(gomock.Any(), "racy@example.com").Return(existing, nil)
		st.EXPECT().UpdateUserProfile(gomock.Any(), gomock.Any()).Return(storage.ErrVersionConflict)

		_, _, err := svc.ExternalLogin(ctx, "google", googleAttrs("racy@example.com"))
		require.ErrorIs(t, err, ErrConcurrentUpdate)
	})

	t.Run("duplicate insert on first login", func(t *testing.T) {
		st.EXPECT().UserByEmail(gomock.Any(), "racy2@example.com").Return(nil, storage.ErrNotFound)
		st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

		_, _, err := svc.ExternalLogin(ctx, "google", googleAttrs("racy2@example.com"))
		require.ErrorIs(t, err, ErrConcurrentUpdate)
	})
}

func TestExternalLogin_SuspendedUserRejected(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	existing := activeUser(t, svc, "blocked@example.com", "Abcdef1!")
	existing.Provider = models.ProviderGoogle
	existing.Status = models.StatusSuspended

	st.EXPECT().UserByEmail(gomock.Any(), "blocked@example.com").Return(existing, nil)
	st.EXPECT().UpdateUserProfile(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := svc.ExternalLogin(context.Background(), "google", googleAttrs("blocked@example.com"))
	require.ErrorIs(t, err, ErrUserStatusNotValid)
}

func TestExternalLogin_ResolverErrors(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := svc.ExternalLogin(ctx, "myspace", googleAttrs("a@b.c"))
		require.ErrorIs(t, err, identity.ErrUnknownProvider)
	})

	t.Run("incomplete attributes", func(t *testing.T) {
		_, _, err := svc.ExternalLogin(ctx, "google", map[string]any{"email": "a@b.c"})
		require.ErrorIs(t, err, identity.ErrIncompleteAttributes)
	})
}
