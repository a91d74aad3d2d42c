// Package filter builds the per-section approximate-membership filters that
// make up a search index. A filter answers "might this token be present":
// tokens added at build time are always reported present, other tokens are
// reported present only with a small bounded probability.
package filter

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
)

// Kind identifies the filter implementation. The numeric values are part of
// the artifact format.
type Kind uint8

const (
	KindCuckoo Kind = 1
	KindBloom  Kind = 2
)

const (
	DefaultCapacityFactor    = 10
	DefaultFalsePositiveRate = 0.01
	minCapacity              = 8
)

func (k Kind) String() string {
	switch k {
	case KindCuckoo:
		return "cuckoo"
	case KindBloom:
		return "bloom"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cuckoo":
		return KindCuckoo, nil
	case "bloom":
		return KindBloom, nil
	default:
		return 0, fmt.Errorf("unknown filter kind %q", s)
	}
}

// Filter is an immutable approximate-membership set of tokens. Contains is
// read-only and safe for concurrent use.
type Filter interface {
	Contains(token string) bool
	MarshalBinary() ([]byte, error)
	Kind() Kind
}

// AddError reports that a token could not be inserted because the filter ran
// out of room.
type AddError struct {
	Token    string
	Capacity uint
}

func (e *AddError) Error() string {
	return fmt.Sprintf("filter full: cannot add token %q (capacity %d)", e.Token, e.Capacity)
}

type Options struct {
	Kind              Kind
	CapacityFactor    int
	FalsePositiveRate float64
}

// Builder turns section text into filters.
type Builder struct {
	tok  tokenizer.Tokenizer
	opts Options
}

func NewBuilder(tok tokenizer.Tokenizer, opts Options) *Builder {
	if opts.Kind == 0 {
		opts.Kind = KindCuckoo
	}
	if opts.CapacityFactor <= 0 {
		opts.CapacityFactor = DefaultCapacityFactor
	}
	if opts.FalsePositiveRate <= 0 || opts.FalsePositiveRate >= 1 {
		opts.FalsePositiveRate = DefaultFalsePositiveRate
	}
	return &Builder{tok: tok, opts: opts}
}

func (b *Builder) Kind() Kind {
	return b.opts.Kind
}

// Build tokenizes texts and returns a filter holding every distinct token.
func (b *Builder) Build(texts ...string) (Filter, error) {
	return b.FromTokens(tokenizer.Set(b.tok, texts...))
}

// FromTokens builds a filter from a sorted, deduplicated token set. Tokens
// are inserted in the given order.
func (b *Builder) FromTokens(tokens []string) (Filter, error) {
	capacity := uint(max(len(tokens)*b.opts.CapacityFactor, minCapacity))
	switch b.opts.Kind {
	case KindCuckoo:
		return newCuckoo(tokens, capacity)
	case KindBloom:
		return newBloom(tokens, b.opts.FalsePositiveRate), nil
	default:
		return nil, fmt.Errorf("unsupported filter kind %s", b.opts.Kind)
	}
}

// Unmarshal restores a filter of the given kind from its MarshalBinary form.
func Unmarshal(kind Kind, data []byte) (Filter, error) {
	switch kind {
	case KindCuckoo:
		return decodeCuckoo(data)
	case KindBloom:
		return decodeBloom(data)
	default:
		return nil, fmt.Errorf("unsupported filter kind %s", kind)
	}
}
