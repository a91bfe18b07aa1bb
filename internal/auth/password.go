package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
	// NeedsRehash reports whether hash was produced with different parameters than the hasher uses now.
	NeedsRehash(hash string) bool
}

// BcryptPasswordHasher is a PasswordHasher backed by bcrypt.
type BcryptPasswordHasher struct {
	cost int
}

// NewBcryptPasswordHasher uses bcrypt.DefaultCost.
func NewBcryptPasswordHasher() *BcryptPasswordHasher {
	return NewBcryptPasswordHasherWithCost(bcrypt.DefaultCost)
}

// NewBcryptPasswordHasherWithCost clamps cost into bcrypt's accepted range.
func NewBcryptPasswordHasherWithCost(cost int) *BcryptPasswordHasher {
	return &BcryptPasswordHasher{cost: min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil when plain matches hash.
func (h *BcryptPasswordHasher) Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

func (h *BcryptPasswordHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}
