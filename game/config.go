package game

import (
	"fmt"
	"slices"
	"time"
	"unicode/utf8"
)

const (
	MinTitleLength    = 1
	MaxTitleLength    = 20
	MaxPasswordLength = 30
	MinUserCount      = 2
	MaxUserCount      = 8
	MinRound          = 1
	MaxRound          = 8
)

// AllowedRoundTimeLimits are the round time budgets, in seconds, a room may use.
var AllowedRoundTimeLimits = []int{60, 90, 120, 150}

type RoomConfig struct {
	Title          string `json:"title"`
	Password       string `json:"password"`
	MaxUserCount   int    `json:"maxUserCount"`
	MaxRound       int    `json:"maxRound"`
	RoundTimeLimit int    `json:"roundTimeLimit"`
}

func (c RoomConfig) Validate() error {
	titleLength := utf8.RuneCountInString(c.Title)
	if titleLength < MinTitleLength || titleLength > MaxTitleLength {
		return fmt.Errorf("%w: title must be %d-%d characters", ErrInvalidRoomConfig, MinTitleLength, MaxTitleLength)
	}

	if len(c.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password cannot exceed %d characters", ErrInvalidRoomConfig, MaxPasswordLength)
	}
	for i := 0; i < len(c.Password); i++ {
		if c.Password[i] < 0x20 || c.Password[i] > 0x7e {
			return fmt.Errorf("%w: password must be printable ascii", ErrInvalidRoomConfig)
		}
	}

	if c.MaxUserCount < MinUserCount || c.MaxUserCount > MaxUserCount {
		return fmt.Errorf("%w: maxUserCount must be between %d and %d", ErrInvalidRoomConfig, MinUserCount, MaxUserCount)
	}

	if c.MaxRound < MinRound || c.MaxRound > MaxRound {
		return fmt.Errorf("%w: maxRound must be between %d and %d", ErrInvalidRoomConfig, MinRound, MaxRound)
	}

	if !slices.Contains(AllowedRoundTimeLimits, c.RoundTimeLimit) {
		return fmt.Errorf("%w: roundTimeLimit must be one of %v", ErrInvalidRoomConfig, AllowedRoundTimeLimits)
	}

	return nil
}

func (c RoomConfig) roundTimeLimit() time.Duration {
	return time.Duration(c.RoundTimeLimit) * time.Second
}
