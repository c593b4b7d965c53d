package partition

import "hash/fnv"

// Bucket maps a key to a reduce bucket in [0, r). It is a pure function of
// its arguments, so every map task routes a given key to the same bucket.
func Bucket(key string, r int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % r
}
