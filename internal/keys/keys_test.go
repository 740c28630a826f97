package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morozovkp/go-taskboard/pkg/authtoken"
)

func writeKeyPEM(t *testing.T, dir, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestGenerate_OK(t *testing.T) {
	t.Parallel()

	a, err := Generate()
	require.NoError(t, err)

	priv, err := a.Signing()
	require.NoError(t, err)
	require.GreaterOrEqual(t, priv.N.BitLen(), 2048)

	pub, err := a.Public()
	require.NoError(t, err)
	require.Equal(t, &priv.PublicKey, pub)
}

func TestLoad_PKCS1AndPKCS8(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()

	t.Run("pkcs1", func(t *testing.T) {
		path := writeKeyPEM(t, dir, "pkcs1.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))

		a, err := Load(path)
		require.NoError(t, err)

		priv, err := a.Signing()
		require.NoError(t, err)
		require.Equal(t, key.N, priv.N)
	})

	t.Run("pkcs8", func(t *testing.T) {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		path := writeKeyPEM(t, dir, "pkcs8.pem", "PRIVATE KEY", der)

		a, err := Load(path)
		require.NoError(t, err)

		priv, err := a.Signing()
		require.NoError(t, err)
		require.Equal(t, key.N, priv.N)
	})
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.pem"))
		require.Error(t, err)
	})

	t.Run("not pem", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no PEM block")
	})

	t.Run("key too small", func(t *testing.T) {
		small, err := rsa.GenerateKey(rand.Reader, 1024)
		require.NoError(t, err)
		path := writeKeyPEM(t, dir, "small.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(small))

		_, err = Load(path)
		require.Error(t, err)
	})
}

func TestAuthority_NilGuards(t *testing.T) {
	t.Parallel()

	var a *Authority

	_, err := a.Signing()
	require.ErrorIs(t, err, authtoken.ErrKeyUnavailable)

	_, err = a.Public()
	require.ErrorIs(t, err, authtoken.ErrKeyUnavailable)
}

func TestPublicPEM_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := Generate()
	require.NoError(t, err)

	pemBytes, err := a.PublicPEM()
	require.NoError(t, err)

	pub, err := authtoken.ParsePublicKeyPEM(pemBytes)
	require.NoError(t, err)

	want, err := a.Public()
	require.NoError(t, err)
	require.Equal(t, want, pub)
}
