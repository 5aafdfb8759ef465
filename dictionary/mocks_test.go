package dictionary_test

import (
	"context"
	"wordchain/game"

	"github.com/stretchr/testify/mock"
)

type MockDictionary struct {
	mock.Mock
}

func (m *MockDictionary) LookupDefinition(ctx context.Context, word string) (*game.Definition, error) {
	args := m.Called(ctx, word)
	def, _ := args.Get(0).(*game.Definition)
	return def, args.Error(1)
}

func (m *MockDictionary) FindWordsStartingWith(ctx context.Context, syllable string, minLength, maxLength int) ([]string, error) {
	args := m.Called(ctx, syllable, minLength, maxLength)
	words, _ := args.Get(0).([]string)
	return words, args.Error(1)
}
