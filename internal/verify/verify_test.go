package verify_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/verify"
)

func writeArtifact(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "setup.exe")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestVerify(t *testing.T) {
	exe := append([]byte("MZ"), make([]byte, 4096)...)

	tests := []struct {
		name     string
		data     []byte
		verifier verify.Verifier
		want     error
	}{
		{
			name:     "magic only",
			data:     exe,
			verifier: verify.Verifier{Magic: verify.DefaultMagic},
		},
		{
			name:     "magic and hash",
			data:     exe,
			verifier: verify.Verifier{Magic: verify.DefaultMagic, SHA256: digest(exe)},
		},
		{
			name:     "hash is case insensitive",
			data:     exe,
			verifier: verify.Verifier{SHA256: strings.ToUpper(digest(exe))},
		},
		{
			name:     "wrong header",
			data:     []byte("<html>not found</html>"),
			verifier: verify.Verifier{Magic: verify.DefaultMagic},
			want:     verify.ErrBadMagic,
		},
		{
			name:     "file shorter than magic",
			data:     []byte("M"),
			verifier: verify.Verifier{Magic: verify.DefaultMagic},
			want:     verify.ErrBadMagic,
		},
		{
			name:     "hash mismatch",
			data:     exe,
			verifier: verify.Verifier{Magic: verify.DefaultMagic, SHA256: digest([]byte("other"))},
			want:     verify.ErrHashMismatch,
		},
		{
			name:     "hash required",
			data:     exe,
			verifier: verify.Verifier{Magic: verify.DefaultMagic, RequireHash: true},
			want:     verify.ErrHashRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, tt.data)

			err := tt.verifier.Verify(t.Context(), path)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, errors.ErrVerificationFailed)
			assert.Equal(t, errors.CategoryVerification, errors.Category(err))
		})
	}
}

func TestVerify_MissingFile(t *testing.T) {
	err := verify.Verifier{}.Verify(t.Context(), filepath.Join(t.TempDir(), "nope.exe"))
	assert.ErrorIs(t, err, errors.ErrVerificationFailed)
}

func TestVerify_ContextCancelled(t *testing.T) {
	data := []byte("MZpayload")
	path := writeArtifact(t, data)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := verify.Verifier{SHA256: digest(data)}.Verify(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMagic(t *testing.T) {
	b, err := verify.ParseMagic("4d5a")
	require.NoError(t, err)
	assert.Equal(t, verify.DefaultMagic, b)

	b, err = verify.ParseMagic("0x7F454C46")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, b)

	_, err = verify.ParseMagic("zz")
	assert.Error(t, err)
}
