package testutil

import (
	"context"
	"fmt"
	"sync"

	"acutils-go/internal/acu"
)

// FakeDirectory is a scripted acu.DirectoryService for tests.
type FakeDirectory struct {
	mu       sync.Mutex
	profiles map[string]*acu.DirectoryProfile
	failFor  map[string]bool
	lookups  int
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		profiles: make(map[string]*acu.DirectoryProfile),
		failFor:  make(map[string]bool),
	}
}

// AddProfile scripts a successful lookup for the given principal.
func (f *FakeDirectory) AddProfile(userName string, p acu.DirectoryProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userName] = &p
}

// FailFor makes lookups for the given principal return an error.
func (f *FakeDirectory) FailFor(userName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[userName] = true
}

// Lookups returns how many lookups were issued.
func (f *FakeDirectory) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *FakeDirectory) Lookup(_ context.Context, userName string) (*acu.DirectoryProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++

	if f.failFor[userName] {
		return nil, fmt.Errorf("directory unavailable for %s", userName)
	}
	p, ok := f.profiles[userName]
	if !ok {
		return nil, fmt.Errorf("no directory entry for %s", userName)
	}
	return p, nil
}

var _ acu.DirectoryService = (*FakeDirectory)(nil)
