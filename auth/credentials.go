package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Account rules checked on signup.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

var (
	ErrInvalidUsernameFormat = errors.New("invalid-username-format")
	ErrWeakPassword          = errors.New("weak-password")
	ErrPasswordTooLong       = errors.New("password-too-long")
	ErrIncorrectPassword     = errors.New("incorrect-password")
)

var usernameFormat = regexp.MustCompile(fmt.Sprintf("^[a-z0-9_]{%d,%d}$", MinUsernameLength, MaxUsernameLength))

// validateSignup checks a new account's credentials. Usernames are lowercase
// ascii, digits and underscores. A password that repeats the username is weak
// whatever its length.
func validateSignup(username, password string) error {
	if !usernameFormat.MatchString(username) {
		return ErrInvalidUsernameFormat
	}

	passwordLength := utf8.RuneCountInString(password)
	switch {
	case passwordLength > MaxPasswordLength:
		return ErrPasswordTooLong
	case passwordLength < MinPasswordLength,
		strings.Contains(strings.ToLower(password), username):
		return ErrWeakPassword
	}
	return nil
}
