// Package crypt encrypts archives with an external openssl binary.
package crypt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Suffix is appended to the name of an encrypted file.
const Suffix = ".enc"

// keyEnv carries the passphrase to the child process so it never shows up in argv.
const keyEnv = "GLACIERBAK_CIPHER_KEY"

var (
	// ErrNoOutput means the cipher exited cleanly but wrote nothing.
	ErrNoOutput = errors.New("encryption produced no output")
	// ErrEmptyOutput means the cipher exited cleanly but the output is empty.
	ErrEmptyOutput = errors.New("encryption produced an empty file")
)

// Cipher runs openssl enc with AES-256-CBC, PBKDF2 and a random salt.
type Cipher struct {
	Binary string
	Key    string
	Log    *slog.Logger
}

// Enabled reports whether a key is configured.
func (c *Cipher) Enabled() bool { return c != nil && c.Key != "" }

// EncryptFile writes src+".enc" and removes src once the output is verified.
// On any failure src is left in place and a partial output is removed.
func (c *Cipher) EncryptFile(ctx context.Context, src string) (string, error) {
	dst := src + Suffix
	if err := c.run(ctx, "-in", src, "-out", dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("encrypting %s: %w", src, err)
	}
	if err := verifyOutput(dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("encrypting %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("removing plaintext %s: %w", src, err)
	}
	c.Log.Debug("encrypted archive", "path", dst)
	return dst, nil
}

// DecryptFile writes the plaintext of src to dst. src is kept.
func (c *Cipher) DecryptFile(ctx context.Context, src, dst string) error {
	if err := c.run(ctx, "-d", "-in", src, "-out", dst); err != nil {
		os.Remove(dst)
		return fmt.Errorf("decrypting %s: %w", src, err)
	}
	return nil
}

func (c *Cipher) run(ctx context.Context, args ...string) error {
	full := append([]string{"enc", "-aes-256-cbc", "-pbkdf2", "-salt", "-pass", "env:" + keyEnv}, args...)
	cmd := exec.CommandContext(ctx, c.Binary, full...)
	cmd.Env = append(os.Environ(), keyEnv+"="+c.Key)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Binary, err, msg)
		}
		return fmt.Errorf("%s: %w", c.Binary, err)
	}
	return nil
}

func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrNoOutput
	}
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return ErrEmptyOutput
	}
	return nil
}
