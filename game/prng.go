package game

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// RoundRNG derives the sampler of one demo round from the revealed seeds.
func RoundRNG(serverSeed, clientSeed string, nonce uint64) *rand.Rand {
	return NewSeededRNG(fmt.Sprintf("%s-%s-%d-lanes", serverSeed, clientSeed, nonce))
}
