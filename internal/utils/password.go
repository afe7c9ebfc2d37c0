package utils

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when the account does not exist so that
// unknown emails cost the same bcrypt work as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck performs a throwaway comparison and always fails.
func BurnPasswordCheck(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
	return false
}
