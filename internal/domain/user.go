package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 2
	MaxUsernameLength = 20

	// Channel bounds keep names legible on both dark and light themes.
	minColorChannel = 100
	maxColorChannel = 255
)

var (
	ErrInvalidName = errors.New("username must be between 2 and 20 characters")
	ErrNameTaken   = errors.New("username is already taken")
)

// Color is a display color in #RRGGBB form
type Color string

// RandomColor draws each channel independently from [100, 255]
func RandomColor(rng *rand.Rand) Color {
	channel := func() int {
		if rng == nil {
			return minColorChannel + rand.IntN(maxColorChannel-minColorChannel+1)
		}
		return minColorChannel + rng.IntN(maxColorChannel-minColorChannel+1)
	}
	r, g, b := channel(), channel(), channel()
	return Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))
}

// User is an active participant and the color assigned at registration
type User struct {
	Username string `json:"username"`
	Color    Color  `json:"color"`
}

// NormalizeUsername trims the name and checks its length in characters
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// UserRegistry stores active usernames, their colors and the session holding
// each name. An empty owner is not bound to a session.
// Implementations are not required to be safe for concurrent use; the chat
// service serializes every call.
type UserRegistry interface {
	Register(name, owner string) (Color, error)
	ColorOf(name string) (Color, bool)
	EnsureRegistered(name, owner string) (Color, error)
	SnapshotColors() map[string]Color
	Release(name, owner string) bool
	Len() int
}
