package delta

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// Unreadable is recorded in place of a digest when a file cannot be read.
// It can never collide with a hex digest.
const Unreadable = "unreadable"

const chunkSize = 8192

// Fingerprint streams the file at path through BLAKE2b-512 and returns the hex digest.
// On any open or read error it returns Unreadable together with the error.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unreadable, err
	}
	defer f.Close()

	h, err := blake2b.New512(nil)
	if err != nil {
		return Unreadable, fmt.Errorf("blake2b: %w", err)
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return Unreadable, err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
