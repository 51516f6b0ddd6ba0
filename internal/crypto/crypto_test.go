package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Keep scrypt cheap in tests.
	WorkFactor = 10
}

func TestEncryptDecrypt(t *testing.T) {
	enc, err := Encrypt("s3cret", "master")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(enc))
	assert.NotContains(t, enc, "s3cret")

	got, err := Decrypt(enc, "master")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	_, err = Decrypt(enc, "wrong")
	assert.Error(t, err)
}

func TestDecryptPlainValue(t *testing.T) {
	got, err := Decrypt("plain", "")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestEmptyKey(t *testing.T) {
	_, err := Encrypt("x", "")
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = Decrypt("ENC[abc]", "")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestIsEncrypted(t *testing.T) {
	tests := map[string]bool{
		"ENC[abc]": true,
		"ENC[]":    false,
		"ENC[abc":  false,
		"abc":      false,
		"":         false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsEncrypted(in), in)
	}
}

func TestMasterKey(t *testing.T) {
	t.Run("env", func(t *testing.T) {
		t.Setenv(MasterKeyEnv, "from-env")
		assert.Equal(t, "from-env", MasterKey())
	})
	t.Run("file", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv(MasterKeyEnv, "")
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".xal"), 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(home, ".xal", "master.key"), []byte("from-file\n"), 0o600))
		assert.Equal(t, "from-file", MasterKey())
	})
}
