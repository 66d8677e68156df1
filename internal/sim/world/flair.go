package world

import "hash/fnv"

// flairDraw is the world's ingredient.Rand. A draw depends only on the seed
// and the ledger slot being filled, so a world resumed from a snapshot draws
// the same flairs as one that never stopped.
type flairDraw struct {
	seed   int64
	vessel string
	slot   int
}

// at positions the next draw; called on the world loop before each interaction.
func (f *flairDraw) at(vessel string, slot int) {
	f.vessel, f.slot = vessel, slot
}

func (f *flairDraw) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(flairHash(f.seed, f.vessel, f.slot) % uint64(n))
}

func flairHash(seed int64, vessel string, slot int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(vessel))
	us := uint64(uint32(int32(slot)))
	v := uint64(seed) ^ (h.Sum64() * 0x9e3779b97f4a7c15) ^ (us * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
