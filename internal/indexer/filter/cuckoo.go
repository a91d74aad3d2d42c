package filter

import (
	"fmt"
	"math/bits"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

const cuckooBucketBytes = 4

type cuckooFilter struct {
	cf *cuckoo.Filter
}

func newCuckoo(tokens []string, capacity uint) (Filter, error) {
	cf := cuckoo.NewFilter(capacity)
	for _, token := range tokens {
		if !cf.Insert([]byte(token)) {
			return nil, &AddError{Token: token, Capacity: capacity}
		}
	}
	return &cuckooFilter{cf: cf}, nil
}

func (f *cuckooFilter) Contains(token string) bool {
	return f.cf.Lookup([]byte(token))
}

func (f *cuckooFilter) MarshalBinary() ([]byte, error) {
	return f.cf.Encode(), nil
}

func (f *cuckooFilter) Kind() Kind {
	return KindCuckoo
}

// decodeCuckoo rejects tables whose bucket count is not a power of two, which
// the library would otherwise index out of range.
func decodeCuckoo(data []byte) (Filter, error) {
	if len(data) == 0 || len(data)%cuckooBucketBytes != 0 {
		return nil, fmt.Errorf("cuckoo table size %d is not a multiple of %d", len(data), cuckooBucketBytes)
	}
	buckets := uint(len(data) / cuckooBucketBytes)
	if bits.OnesCount(buckets) != 1 {
		return nil, fmt.Errorf("cuckoo bucket count %d is not a power of two", buckets)
	}
	cf, err := cuckoo.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cuckoo filter: %w", err)
	}
	return &cuckooFilter{cf: cf}, nil
}
