package crypto

import (
	"fmt"
	"wordchain/domain"

	"github.com/alexedwards/argon2id"
)

// DefaultArgon2idParams costs 64 MiB and three passes per hash.
var DefaultArgon2idParams = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type Argon2idHasher struct {
	params argon2id.Params
}

// NewArgon2idHasher copies params; Memory is in KiB.
func NewArgon2idHasher(params argon2id.Params) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, &h.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedPasswordHashingError, err)
	}
	return hash, nil
}

// Compare checks password against an encoded hash. Hashes produced with older
// parameters still verify, the parameters travel inside the hash.
func (h *Argon2idHasher) Compare(hash, password string) (bool, error) {
	match, _, err := argon2id.CheckHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedPasswordHashComparisonError, err)
	}
	return match, nil
}
