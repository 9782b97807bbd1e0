package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash from the plaintext. The salt is random
// per call, so two hashes of the same password never match byte-for-byte.
// bcrypt's cost keeps the transform deliberately expensive.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored hash. The
// comparison is constant-time inside bcrypt; a mismatch is a false return,
// never an error.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
