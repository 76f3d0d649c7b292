package common

import (
	"math/rand"

	"github.com/shiftd-io/shiftd/server/caesar"
	"github.com/shiftd-io/shiftd/server/channel"
)

// PreGeneratePayloads creates count payloads of the given size drawn from the
// cipher alphabet, so the decrypt pass of a round trip reproduces them
// exactly. Sizes above the channel capacity are capped since the channel
// would truncate them anyway.
func PreGeneratePayloads(count, size int, seed int64) [][]byte {
	if size > channel.Capacity {
		size = channel.Capacity
	}
	rng := rand.New(rand.NewSource(seed))
	payloads := make([][]byte, count)
	for i := range payloads {
		p := make([]byte, size)
		for j := range p {
			p[j] = caesar.Alphabet[rng.Intn(caesar.Size)]
		}
		payloads[i] = p
	}
	return payloads
}

// TotalByteSize returns the total bytes across all payloads.
func TotalByteSize(payloads [][]byte) int64 {
	var total int64
	for _, p := range payloads {
		total += int64(len(p))
	}
	return total
}
