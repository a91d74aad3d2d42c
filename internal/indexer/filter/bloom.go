package filter

import (
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

type bloomFilter struct {
	bf *bloom.BloomFilter
}

// newBloom sizes the filter for the token count at the requested false
// positive rate. Adding to a bloom filter never fails.
func newBloom(tokens []string, fpRate float64) Filter {
	bf := bloom.NewWithEstimates(uint(max(len(tokens), 1)), fpRate)
	for _, token := range tokens {
		bf.AddString(token)
	}
	return &bloomFilter{bf: bf}
}

func (f *bloomFilter) Contains(token string) bool {
	return f.bf.TestString(token)
}

func (f *bloomFilter) MarshalBinary() ([]byte, error) {
	return f.bf.MarshalBinary()
}

func (f *bloomFilter) Kind() Kind {
	return KindBloom
}

func decodeBloom(data []byte) (Filter, error) {
	bf := &bloom.BloomFilter{}
	if err := bf.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decoding bloom filter: %w", err)
	}
	if bf.Cap() == 0 || bf.K() == 0 {
		return nil, fmt.Errorf("bloom filter has no bits or hash functions")
	}
	return &bloomFilter{bf: bf}, nil
}
