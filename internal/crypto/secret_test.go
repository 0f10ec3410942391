package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("custody-api-key-12345", "hunter2")
	require.NoError(t, err)

	secret, err := DecryptSecret(blob, "hunter2")
	require.NoError(t, err)
	require.Equal(t, "custody-api-key-12345", secret)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("custody-api-key-12345", "hunter2")
	require.NoError(t, err)

	_, err = DecryptSecret(blob, "wrong")
	require.Error(t, err)
}

func TestEncryptRejectsEmptyInputs(t *testing.T) {
	_, err := EncryptSecret("", "hunter2")
	require.Error(t, err)

	_, err = EncryptSecret("secret", "")
	require.Error(t, err)
}

func TestLoadSecret(t *testing.T) {
	// Raw takes precedence.
	secret, err := LoadSecret(SecretConfig{Raw: "inline-key"})
	require.NoError(t, err)
	require.Equal(t, "inline-key", secret)

	// Encrypted file path.
	blob, err := EncryptSecret("file-key", "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "custody.key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	secret, err = LoadSecret(SecretConfig{EncryptedPath: path, Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "file-key", secret)

	// No source configured.
	_, err = LoadSecret(SecretConfig{})
	require.Error(t, err)
}
