package game

import "context"

type Definition struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

// Dictionary validates submitted words and supplies round seed words.
// A nil definition with a nil error means the word does not exist.
type Dictionary interface {
	LookupDefinition(ctx context.Context, word string) (*Definition, error)
	FindWordsStartingWith(ctx context.Context, syllable string, minLength, maxLength int) ([]string, error)
}

type UniqueIdGenerator interface {
	Generate() string
}
