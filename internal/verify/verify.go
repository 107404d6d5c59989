package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/NamanBalaji/updater/internal/errors"
)

// DefaultMagic is the "MZ" header every Windows executable starts with.
var DefaultMagic = []byte{0x4d, 0x5a}

var (
	ErrBadMagic     = errors.New("unexpected file header")
	ErrHashMismatch = errors.New("sha256 mismatch")
	ErrHashRequired = errors.New("no sha256 published for this artifact")
)

// Verifier decides whether a downloaded artifact may be installed.
type Verifier struct {
	// Magic is the required file prefix. Empty skips the check.
	Magic []byte
	// SHA256 is the expected hex digest. Empty skips the check unless RequireHash is set.
	SHA256      string
	RequireHash bool
}

// ParseMagic decodes a hex prefix such as "4d5a".
func ParseMagic(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid magic %q: %w", s, err)
	}

	return b, nil
}

// Verify checks path. Failures match errors.ErrVerificationFailed.
func (v Verifier) Verify(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewVerificationError(err, path)
	}
	defer f.Close()

	if len(v.Magic) > 0 {
		head := make([]byte, len(v.Magic))

		if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, v.Magic) {
			return errors.NewVerificationError(fmt.Errorf("%w: want %x", ErrBadMagic, v.Magic), path)
		}
	}

	if v.SHA256 == "" {
		if v.RequireHash {
			return errors.NewVerificationError(ErrHashRequired, path)
		}

		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.NewVerificationError(err, path)
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, contextReader{ctx: ctx, r: f}); err != nil {
		return errors.NewVerificationError(fmt.Errorf("hash: %w", err), path)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(got, v.SHA256) {
		return errors.NewVerificationError(fmt.Errorf("%w: got %s, want %s", ErrHashMismatch, got, v.SHA256), path)
	}

	return nil
}

// contextReader stops hashing a large file once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
