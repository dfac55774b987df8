// Package aggregate groups glucose samples into day and time-of-day buckets
// and computes time-in-range percentages for each bucket.
//
// Everything here is pure: no I/O, no logging, no shared state.
package aggregate

import (
	"cmp"
	"iter"
	"slices"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// Buckets is an ordered mapping from a bucket key to the samples in it.
// Keys are unique and iterate in insertion order unless sorted.
// A bucket present in the mapping always holds at least one sample.
type Buckets[K comparable] struct {
	keys   []K
	groups map[K][]bloodsugar.Sample
}

func newBuckets[K comparable]() *Buckets[K] {
	return &Buckets[K]{groups: make(map[K][]bloodsugar.Sample)}
}

func (b *Buckets[K]) add(key K, s bloodsugar.Sample) {
	if _, ok := b.groups[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.groups[key] = append(b.groups[key], s)
}

// Len returns the number of buckets.
func (b *Buckets[K]) Len() int {
	return len(b.keys)
}

// Keys returns the bucket keys in iteration order.
func (b *Buckets[K]) Keys() []K {
	return slices.Clone(b.keys)
}

// Get returns the samples for key. ok is false when no sample fell into the bucket.
func (b *Buckets[K]) Get(key K) (samples []bloodsugar.Sample, ok bool) {
	samples, ok = b.groups[key]
	return samples, ok
}

// All iterates over the buckets in order.
func (b *Buckets[K]) All() iter.Seq2[K, []bloodsugar.Sample] {
	return func(yield func(K, []bloodsugar.Sample) bool) {
		for _, k := range b.keys {
			if !yield(k, b.groups[k]) {
				return
			}
		}
	}
}

// Flatten concatenates all buckets in key order.
func (b *Buckets[K]) Flatten() []bloodsugar.Sample {
	var out []bloodsugar.Sample
	for _, k := range b.keys {
		out = append(out, b.groups[k]...)
	}
	return out
}

func sortKeys[K cmp.Ordered](b *Buckets[K]) {
	slices.Sort(b.keys)
}
