package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

var (
	ErrTokenInvalid = errors.New("media token invalid")
	ErrTokenExpired = errors.New("media token expired")
)

const defaultMediaTokenTTL = 24 * time.Hour

// MediaSigner issues short lived tokens that authorise a download of exactly one media key.
// A token is base64url(expiry || HMAC-SHA256(secret, expiry || key)).
type MediaSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMediaSigner builds a signer. A non-positive ttl defaults to one day.
func NewMediaSigner(secret string, ttl time.Duration) *MediaSigner {
	if ttl <= 0 {
		ttl = defaultMediaTokenTTL
	}
	return &MediaSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for key and the moment it stops being accepted.
func (s *MediaSigner) Sign(key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("media key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("media signing secret missing")
	}
	expires := s.now().Add(s.ttl).Truncate(time.Second)
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(expires.Unix()))
	raw := append(stamp, s.mac(stamp, key)...)
	return base64.RawURLEncoding.EncodeToString(raw), expires, nil
}

// Check accepts token only if it was signed for key and has not expired.
func (s *MediaSigner) Check(key, token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 8+sha256.Size {
		return ErrTokenInvalid
	}
	stamp, sum := raw[:8], raw[8:]
	if !hmac.Equal(sum, s.mac(stamp, key)) {
		return ErrTokenInvalid
	}
	expires := time.Unix(int64(binary.BigEndian.Uint64(stamp)), 0)
	if s.now().After(expires) {
		return ErrTokenExpired
	}
	return nil
}

func (s *MediaSigner) mac(stamp []byte, key string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(stamp)
	h.Write([]byte(key))
	return h.Sum(nil)
}
