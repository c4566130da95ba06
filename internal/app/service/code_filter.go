package service

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter is a concurrency-safe bloom filter over known short codes. A
// definite miss lets the resolver answer NotFound without touching Redis or
// Postgres; false positives simply fall through to the normal lookup path.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter sizes the filter for the expected number of codes at the
// given false-positive rate.
func NewCodeFilter(expectedCodes uint, falsePositiveRate float64) *CodeFilter {
	if expectedCodes == 0 {
		expectedCodes = 1 << 20
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return &CodeFilter{
		filter: bloom.NewWithEstimates(expectedCodes, falsePositiveRate),
	}
}

// Seed adds a batch of codes, typically every stored code at startup.
func (f *CodeFilter) Seed(codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.filter.AddString(code)
	}
}

// Add records a newly allocated code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

// MightContain reports whether the code could be known. False means the code
// was definitely never added.
func (f *CodeFilter) MightContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}
