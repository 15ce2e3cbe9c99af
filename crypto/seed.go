package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateServerSeed returns a fresh demo round seed and the sha256 commitment
// shown to the player before the walk starts.
func GenerateServerSeed() (seed string, hash string) {
	seed = randomHex(32)
	hash = HashSeed(seed)
	return
}

// GenerateClientSeed is used when the player did not pick one.
func GenerateClientSeed() string {
	return randomHex(8)
}

func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func VerifySeed(seed, hash string) bool {
	return HashSeed(seed) == hash
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}
