// Package signing issues and verifies HMAC-signed links that let an employee
// sign their own corrective action without a staff login.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidLink = errors.New("invalid signing link")
	ErrExpiredLink = errors.New("signing link expired")
)

// LinkClaims is the identity carried by a verified signing link.
type LinkClaims struct {
	ActionID   string
	EmployeeID string
	ExpiresAt  time.Time
}

// LinkSigner creates and validates signing link tokens.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer with the provided secret and TTL.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token binding the action to its subject employee.
func (s *LinkSigner) Generate(actionID, employeeID string) (string, time.Time, error) {
	if actionID == "" || employeeID == "" {
		return "", time.Time{}, fmt.Errorf("actionID and employeeID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	payload := encodePayload(actionID, employeeID, expiresAt)
	return payload + "." + s.sign(payload), expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *LinkSigner) Parse(token string) (*LinkClaims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || payload == "" || signature == "" {
		return nil, ErrInvalidLink
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(signature)) {
		return nil, ErrInvalidLink
	}
	claims, err := decodePayload(payload)
	if err != nil {
		return nil, ErrInvalidLink
	}
	if s.now().After(claims.ExpiresAt) {
		return nil, ErrExpiredLink
	}
	return claims, nil
}

func (s *LinkSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func encodePayload(actionID, employeeID string, expiresAt time.Time) string {
	raw := strings.Join([]string{actionID, employeeID, strconv.FormatInt(expiresAt.Unix(), 10)}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePayload(payload string) (*LinkClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("malformed payload")
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry: %w", err)
	}
	return &LinkClaims{ActionID: parts[0], EmployeeID: parts[1], ExpiresAt: time.Unix(exp, 0).UTC()}, nil
}
