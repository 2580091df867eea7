package auth

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when no user matches a login email so that
// both failure paths spend one bcrypt comparison.
var dummyHash = mustHash("clinic-dummy-password", bcrypt.DefaultCost)

func mustHash(pw string, cost int) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		panic(err)
	}
	return h
}

// HashPassword returns the bcrypt hash of password. A cost of zero uses
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BurnPasswordCheck runs a comparison against a fixed hash and discards the
// result. It is called on the unknown-email path of a login.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
