package auth

import "crypto/subtle"

// CredentialChecker decides whether a username/password pair may log in.
type CredentialChecker interface {
	Login(username, password string) bool
}

// StaticChecker accepts exactly one configured username and password.
type StaticChecker struct {
	username []byte
	password []byte
}

// NewStaticChecker creates a checker for the given credentials.
func NewStaticChecker(username, password string) *StaticChecker {
	return &StaticChecker{
		username: []byte(username),
		password: []byte(password),
	}
}

// Login compares both values in constant time. Empty usernames never match.
func (c *StaticChecker) Login(username, password string) bool {
	if username == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), c.username)
	passOK := subtle.ConstantTimeCompare([]byte(password), c.password)

	return userOK&passOK == 1
}
