// Package crypto encrypts inventory secrets with an age scrypt passphrase.
// Encrypted values are stored inline as ENC[<base64 age payload>].
package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/pterm/pterm"
)

const (
	prefix = "ENC["
	suffix = "]"

	// MasterKeyEnv names the environment variable holding the master key.
	MasterKeyEnv = "XAL_MASTER_KEY"
)

// WorkFactor is the scrypt log2 work factor used by Encrypt.
var WorkFactor = 18

var ErrNoKey = errors.New("master key is empty")

// IsEncrypted reports whether v is an ENC[...] value.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, prefix) && strings.HasSuffix(v, suffix) && len(v) > len(prefix)+len(suffix)
}

// Encrypt seals plaintext with key and returns an ENC[...] value.
func Encrypt(plaintext, key string) (string, error) {
	if key == "" {
		return "", ErrNoKey
	}
	recipient, err := age.NewScryptRecipient(key)
	if err != nil {
		return "", fmt.Errorf("scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(WorkFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return prefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + suffix, nil
}

// Decrypt opens an ENC[...] value. Other values are returned unchanged.
func Decrypt(v, key string) (string, error) {
	if !IsEncrypted(v) {
		return v, nil
	}
	if key == "" {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(v[len(prefix) : len(v)-len(suffix)])
	if err != nil {
		return "", fmt.Errorf("decode encrypted value: %w", err)
	}
	identity, err := age.NewScryptIdentity(key)
	if err != nil {
		return "", fmt.Errorf("scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(out), nil
}

// MasterKey looks up the key in XAL_MASTER_KEY, then ~/.xal/master.key, and
// finally asks on the terminal. It returns "" when none is available.
func MasterKey() string {
	if key := os.Getenv(MasterKeyEnv); key != "" {
		return key
	}

	if home, err := os.UserHomeDir(); err == nil {
		if content, err := os.ReadFile(filepath.Join(home, ".xal", "master.key")); err == nil {
			if key := strings.TrimSpace(string(content)); key != "" {
				return key
			}
		}
	}

	if isInteractive() {
		pterm.Println()
		pterm.Warning.Printfln("Encrypted values found but %s is not set.", MasterKeyEnv)
		key, err := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			WithDefaultText("Enter master key").
			Show()
		if err == nil && key != "" {
			return key
		}
	}
	return ""
}

func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fileInfo.Mode()&os.ModeCharDevice != 0
}
