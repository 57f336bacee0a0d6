package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SecretPrefix marks a base64-encoded symmetric signing secret
	SecretPrefix = "whsec_"

	// Version is the only signature scheme this package accepts
	Version = "v1"

	// MinSecretBytes is the minimum accepted secret size (192 bits)
	MinSecretBytes = 24

	// MaxSecretBytes is the maximum accepted secret size (512 bits)
	MaxSecretBytes = 64
)

// Secret is a decoded symmetric signing secret
type Secret struct {
	raw []byte
}

// ParseSecret decodes a whsec_-prefixed base64 secret
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, SecretPrefix))
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}
	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{raw: raw}, nil
}

// Sign computes the v1 signature over {msgID}.{timestamp}.{payload}
func Sign(secret Secret, msgID string, timestamp time.Time, payload []byte) (string, error) {
	if strings.Contains(msgID, ".") {
		return "", fmt.Errorf("message ID must not contain '.'")
	}

	signed := fmt.Sprintf("%s.%s.%s", msgID, strconv.FormatInt(timestamp.Unix(), 10), payload)
	mac := hmac.New(sha256.New, secret.raw)
	mac.Write([]byte(signed))

	return Version + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

/* Verify checks a space-delimited signature header (as sent by Standard
 * Webhooks emitters, possibly carrying several signatures during secret
 * rotation) against the given secrets. Comparison is constant time.
 * Unknown versions and malformed entries are skipped, not fatal
 */
func Verify(secrets []Secret, msgID string, timestamp time.Time, payload []byte, header string) (bool, error) {
	if len(secrets) == 0 {
		return false, fmt.Errorf("must provide at least one secret")
	}

	candidates := parseHeader(header)
	if len(candidates) == 0 {
		return false, nil
	}

	for _, secret := range secrets {
		expected, err := Sign(secret, msgID, timestamp, payload)
		if err != nil {
			return false, fmt.Errorf("calculating signature: %w", err)
		}
		for _, candidate := range candidates {
			if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1 {
				return true, nil
			}
		}
	}

	return false, nil
}

// parseHeader extracts the v1 entries from a signature header
func parseHeader(header string) []string {
	var out []string
	for _, part := range strings.Fields(header) {
		if strings.HasPrefix(part, Version+",") {
			out = append(out, part)
		}
	}
	return out
}
