package domain_test

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tenantcrypt/internal/crypto/domain"
)

var (
	testIV  = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, domain.NonceSize))
	testTag = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, domain.TagSize))
)

func TestParseEncryptedValue_Success(t *testing.T) {
	t.Run("ValidInput", func(t *testing.T) {
		input := "7." + testIV + "." + testTag + "." + base64.StdEncoding.EncodeToString([]byte("secret"))

		ev, err := domain.ParseEncryptedValue(input)

		require.NoError(t, err)
		assert.Equal(t, uint(7), ev.Version)
		assert.Len(t, ev.IV, domain.NonceSize)
		assert.Len(t, ev.Tag, domain.TagSize)
		assert.Equal(t, []byte("secret"), ev.Ciphertext)
		assert.Equal(t, input, ev.String())
	})

	t.Run("EmptyCiphertextSegment", func(t *testing.T) {
		ev, err := domain.ParseEncryptedValue("1." + testIV + "." + testTag + ".")

		require.NoError(t, err)
		assert.Empty(t, ev.Ciphertext)
	})

	t.Run("MaxUint32Version", func(t *testing.T) {
		ev, err := domain.ParseEncryptedValue("4294967295." + testIV + "." + testTag + ".YQ==")

		require.NoError(t, err)
		assert.Equal(t, uint(4294967295), ev.Version)
	})
}

func TestParseEncryptedValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "Plaintext", input: "plain@example.com"},
		{name: "ThreeSegments", input: "1." + testIV + "." + testTag},
		{name: "FiveSegments", input: "1." + testIV + "." + testTag + ".YQ==.YQ=="},
		{name: "ZeroVersion", input: "0." + testIV + "." + testTag + ".YQ=="},
		{name: "LeadingZeroVersion", input: "01." + testIV + "." + testTag + ".YQ=="},
		{name: "NegativeVersion", input: "-1." + testIV + "." + testTag + ".YQ=="},
		{name: "VersionOverflow", input: "4294967296." + testIV + "." + testTag + ".YQ=="},
		{name: "NonNumericVersion", input: "v1." + testIV + "." + testTag + ".YQ=="},
		{name: "EmptyIV", input: "1.." + testTag + ".YQ=="},
		{name: "EmptyTag", input: "1." + testIV + "..YQ=="},
		{name: "InvalidBase64Ciphertext", input: "1." + testIV + "." + testTag + ".***"},
		{name: "URLSafeBase64", input: "1." + testIV + "." + testTag + ".-_-_"},
		{name: "Empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseEncryptedValue(tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidFormat)
			assert.False(t, domain.IsEncryptedFormat(tt.input))
		})
	}
}

func TestIsEncryptedFormat(t *testing.T) {
	assert.False(t, domain.IsEncryptedFormat("plain@example.com"))
	assert.False(t, domain.IsEncryptedFormat("a.b.c.d"))
	assert.True(t, domain.IsEncryptedFormat("1."+testIV+"."+testTag+".am9obg=="))

	// Shape alone decides; wrong segment lengths are caught at decryption.
	assert.True(t, domain.IsEncryptedFormat("1.QUJD.REVG.R0hJ"))
	assert.True(t, domain.IsEncryptedFormat("1.AAAA."+testTag+".YQ=="))
	assert.True(t, domain.IsEncryptedFormat("1."+testIV+".AAAA.YQ=="))
}

func TestEncryptedValue_CheckSizes(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		ev, err := domain.ParseEncryptedValue("1." + testIV + "." + testTag + ".YQ==")
		require.NoError(t, err)
		assert.NoError(t, ev.CheckSizes())
	})

	tests := []struct {
		name  string
		input string
	}{
		{name: "ShortIV", input: "1.AAAA." + testTag + ".YQ=="},
		{name: "ShortTag", input: "1." + testIV + ".AAAA.YQ=="},
		{name: "BothShort", input: "1.QUJD.REVG.R0hJ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := domain.ParseEncryptedValue(tt.input)
			require.NoError(t, err)
			assert.ErrorIs(t, ev.CheckSizes(), domain.ErrIntegrity)
		})
	}
}

func TestNewEncryptedValue(t *testing.T) {
	iv := bytes.Repeat([]byte{3}, domain.NonceSize)
	sealed := append([]byte("ciphertext"), bytes.Repeat([]byte{4}, domain.TagSize)...)

	ev, err := domain.NewEncryptedValue(2, iv, sealed)
	require.NoError(t, err)

	assert.Equal(t, []byte("ciphertext"), ev.Ciphertext)
	assert.Equal(t, bytes.Repeat([]byte{4}, domain.TagSize), ev.Tag)
	assert.Equal(t, sealed, ev.Sealed())

	pattern := regexp.MustCompile(`^2\.[A-Za-z0-9+/=]+\.[A-Za-z0-9+/=]+\.[A-Za-z0-9+/=]+$`)
	assert.Regexp(t, pattern, ev.String())

	_, err = domain.NewEncryptedValue(2, iv[:4], sealed)
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = domain.NewEncryptedValue(2, iv, sealed[:4])
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}
