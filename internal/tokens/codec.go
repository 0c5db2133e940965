// Package tokens mints and verifies the per-recipient access tokens embedded in
// shared price sheet links.
package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Length is the number of hex characters in a token.
const Length = 16

var ErrMissingSecret = errors.New("token secret is required")

// Codec derives tokens from a server secret. The secret never leaves the codec.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Mint returns the token for one send of a document to a recipient.
func (c *Codec) Mint(recipientID, documentID, nonce string) string {
	return c.sign(recipientID, documentID+":"+recipientID+":"+nonce)
}

// MintStable returns the nonce-less token. Every send of the same document to the
// same recipient shares it, so it is only used for links issued before nonces.
func (c *Codec) MintStable(recipientID, documentID string) string {
	return c.sign(recipientID, documentID+":"+recipientID)
}

// Verify recomputes the token for the given identity. An empty nonce selects
// the stable form. Malformed input simply fails to verify.
func (c *Codec) Verify(token, recipientID, documentID, nonce string) bool {
	var expected string
	if nonce == "" {
		expected = c.MintStable(recipientID, documentID)
	} else {
		expected = c.Mint(recipientID, documentID, nonce)
	}

	// Compare fixed-size windows so token length is not observable.
	var got, want [Length]byte
	copy(got[:], token)
	copy(want[:], expected)
	match := subtle.ConstantTimeCompare(got[:], want[:])
	return match == 1 && len(token) == Length
}

func (c *Codec) sign(recipientID, msg string) string {
	key := make([]byte, 0, len(c.secret)+1+len(recipientID))
	key = append(key, c.secret...)
	key = append(key, '-')
	key = append(key, recipientID...)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))[:Length]
}

// WellFormed reports whether token has the minted shape.
func WellFormed(token string) bool {
	if len(token) != Length {
		return false
	}
	for i := 0; i < len(token); i++ {
		ch := token[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

// NewNonce returns a value unique per send.
func NewNonce(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10) + "." + uuid.NewString()
}
