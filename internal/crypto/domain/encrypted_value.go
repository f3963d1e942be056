package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const encryptedValueSeparator = "."

// versionPattern is a positive decimal integer without leading zeros.
var versionPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// EncryptedValue is the self-describing form of one encrypted field.
//
// The wire format is "{version}.{base64(iv)}.{base64(tag)}.{base64(ciphertext)}" using
// standard base64 with padding. Version is the tenant key version whose derived field
// key produced the ciphertext.
//
// Fields:
//   - Version: tenant key version, always >= 1
//   - IV: 12-byte random GCM nonce
//   - Tag: 16-byte GCM authentication tag
//   - Ciphertext: encrypted bytes without the tag (empty for an empty plaintext)
type EncryptedValue struct {
	Version    uint
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// ParseEncryptedValue parses the four-segment wire format.
//
// Parsing is structural: the version must match versionPattern and fit in 32 bits and
// the other three segments must be strict standard base64. The IV and tag segments must
// be non-empty; the ciphertext segment may be empty. Any violation returns
// ErrInvalidFormat. Segment lengths are not checked here, see CheckSizes.
//
// Example:
//
//	ev, err := ParseEncryptedValue("1.AAAAAAAAAAAAAAAA.AAAAAAAAAAAAAAAAAAAAAA==.am9obg==")
func ParseEncryptedValue(s string) (EncryptedValue, error) {
	parts := strings.Split(s, encryptedValueSeparator)
	if len(parts) != 4 {
		return EncryptedValue{}, fmt.Errorf(
			"%w: expected 4 dot-separated segments, got %d",
			ErrInvalidFormat,
			len(parts),
		)
	}

	if !versionPattern.MatchString(parts[0]) {
		return EncryptedValue{}, fmt.Errorf("%w: version is not a positive integer", ErrInvalidFormat)
	}
	version, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return EncryptedValue{}, fmt.Errorf("%w: version out of range", ErrInvalidFormat)
	}

	iv, err := decodeSegment(parts[1], "iv")
	if err != nil {
		return EncryptedValue{}, err
	}
	if len(iv) == 0 {
		return EncryptedValue{}, fmt.Errorf("%w: iv is empty", ErrInvalidFormat)
	}

	tag, err := decodeSegment(parts[2], "tag")
	if err != nil {
		return EncryptedValue{}, err
	}
	if len(tag) == 0 {
		return EncryptedValue{}, fmt.Errorf("%w: tag is empty", ErrInvalidFormat)
	}

	ciphertext, err := decodeSegment(parts[3], "ciphertext")
	if err != nil {
		return EncryptedValue{}, err
	}

	return EncryptedValue{
		Version:    uint(version),
		IV:         iv,
		Tag:        tag,
		Ciphertext: ciphertext,
	}, nil
}

// IsEncryptedFormat reports whether s has the shape of an EncryptedValue. It never
// touches key material, so it is safe to call on any stored value.
//
// A value that satisfies every structural rule is reported as encrypted even when its
// IV or tag has the wrong length; decrypting it then fails with ErrIntegrity rather than
// passing through as legacy plaintext.
func IsEncryptedFormat(s string) bool {
	_, err := ParseEncryptedValue(s)
	return err == nil
}

// CheckSizes verifies the IV and tag lengths AES-GCM requires. A mismatch means the
// stored value was truncated or altered and is reported as ErrIntegrity.
func (ev EncryptedValue) CheckSizes() error {
	if len(ev.IV) != NonceSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrIntegrity, NonceSize, len(ev.IV))
	}
	if len(ev.Tag) != TagSize {
		return fmt.Errorf("%w: tag must be %d bytes, got %d", ErrIntegrity, TagSize, len(ev.Tag))
	}
	return nil
}

// String serializes the value to its wire format.
func (ev EncryptedValue) String() string {
	return strings.Join([]string{
		strconv.FormatUint(uint64(ev.Version), 10),
		base64.StdEncoding.EncodeToString(ev.IV),
		base64.StdEncoding.EncodeToString(ev.Tag),
		base64.StdEncoding.EncodeToString(ev.Ciphertext),
	}, encryptedValueSeparator)
}

// Sealed returns ciphertext||tag, the layout crypto/cipher.AEAD.Open expects.
func (ev EncryptedValue) Sealed() []byte {
	sealed := make([]byte, 0, len(ev.Ciphertext)+len(ev.Tag))
	sealed = append(sealed, ev.Ciphertext...)
	return append(sealed, ev.Tag...)
}

// NewEncryptedValue splits an AEAD output (ciphertext||tag) into its wire segments.
func NewEncryptedValue(version uint, iv, sealed []byte) (EncryptedValue, error) {
	if len(iv) != NonceSize {
		return EncryptedValue{}, fmt.Errorf("%w: iv must be %d bytes", ErrInvalidFormat, NonceSize)
	}
	if len(sealed) < TagSize {
		return EncryptedValue{}, fmt.Errorf("%w: sealed output shorter than tag", ErrInvalidFormat)
	}
	split := len(sealed) - TagSize
	return EncryptedValue{
		Version:    version,
		IV:         iv,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

func decodeSegment(segment, name string) ([]byte, error) {
	b, err := base64.StdEncoding.Strict().DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrInvalidFormat, name)
	}
	return b, nil
}
