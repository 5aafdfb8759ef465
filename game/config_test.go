package game

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomConfig_Validate(t *testing.T) {
	testCases := []struct {
		desc   string
		action func(c *RoomConfig)
		valid  bool
	}{
		{"valid", func(c *RoomConfig) {}, true},
		{"empty title", func(c *RoomConfig) { c.Title = "" }, false},
		{"title of 20 runes", func(c *RoomConfig) { c.Title = strings.Repeat("가", 20) }, true},
		{"title of 21 runes", func(c *RoomConfig) { c.Title = strings.Repeat("가", 21) }, false},
		{"password with space", func(c *RoomConfig) { c.Password = "a b" }, true},
		{"password with tab", func(c *RoomConfig) { c.Password = "a\tb" }, false},
		{"password with hangul", func(c *RoomConfig) { c.Password = "비밀" }, false},
		{"password too long", func(c *RoomConfig) { c.Password = strings.Repeat("x", 31) }, false},
		{"password at limit", func(c *RoomConfig) { c.Password = strings.Repeat("x", 30) }, true},
		{"one user", func(c *RoomConfig) { c.MaxUserCount = 1 }, false},
		{"nine users", func(c *RoomConfig) { c.MaxUserCount = 9 }, false},
		{"eight users", func(c *RoomConfig) { c.MaxUserCount = 8 }, true},
		{"zero rounds", func(c *RoomConfig) { c.MaxRound = 0 }, false},
		{"nine rounds", func(c *RoomConfig) { c.MaxRound = 9 }, false},
		{"unsupported time limit", func(c *RoomConfig) { c.RoundTimeLimit = 100 }, false},
		{"longest time limit", func(c *RoomConfig) { c.RoundTimeLimit = 150 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := validRoomConfig()
			tc.action(&cfg)

			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRoomConfig)
				assert.Equal(t, KindValidation, KindOf(err))
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		err      error
		expected ErrorKind
	}{
		{ErrWordTooShort, KindValidation},
		{ErrNotTurnHolder, KindAuthorization},
		{fmt.Errorf("%w: 8/8", ErrRoomFull), KindCapacity},
		{ErrRoundWordUnavailable, KindDependency},
		{ErrTurnChanged, KindInvariant},
		{errors.New("boom"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.expected.String(), func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
		})
	}
}
