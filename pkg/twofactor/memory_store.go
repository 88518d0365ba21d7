package twofactor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. Suitable for tests and single
// instance deployments.
type MemoryStore struct {
	mu         sync.Mutex
	records    map[uuid.UUID]Record
	codes      map[uuid.UUID]map[string]bool // hash -> used
	challenges map[string]Challenge
	byIdentity map[uuid.UUID]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[uuid.UUID]Record),
		codes:      make(map[uuid.UUID]map[string]bool),
		challenges: make(map[string]Challenge),
		byIdentity: make(map[uuid.UUID]map[string]struct{}),
	}
}

func (m *MemoryStore) SaveEnrollment(_ context.Context, rec Record, backupHashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.IdentityID] = rec
	m.codes[rec.IdentityID] = codeSet(backupHashes)
	m.dropChallengesLocked(rec.IdentityID)
	return nil
}

func (m *MemoryStore) GetEnrollment(_ context.Context, identityID uuid.UUID) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[identityID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) MarkEnabled(_ context.Context, identityID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[identityID]
	if !ok {
		return ErrNotFound
	}
	rec.Enabled = true
	rec.ConfirmedAt = at
	m.records[identityID] = rec
	return nil
}

func (m *MemoryStore) DeleteEnrollment(_ context.Context, identityID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, identityID)
	delete(m.codes, identityID)
	m.dropChallengesLocked(identityID)
	return nil
}

func (m *MemoryStore) ReplaceBackupCodes(_ context.Context, identityID uuid.UUID, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[identityID]; !ok {
		return ErrNotFound
	}
	m.codes[identityID] = codeSet(hashes)
	return nil
}

func (m *MemoryStore) ConsumeBackupCode(_ context.Context, identityID uuid.UUID, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used, ok := m.codes[identityID][hash]
	if !ok || used {
		return false, nil
	}
	m.codes[identityID][hash] = true
	return true, nil
}

func (m *MemoryStore) CountBackupCodes(_ context.Context, identityID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, used := range m.codes[identityID] {
		if !used {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveChallenge(_ context.Context, c Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.TokenHash] = c
	if m.byIdentity[c.IdentityID] == nil {
		m.byIdentity[c.IdentityID] = make(map[string]struct{})
	}
	m.byIdentity[c.IdentityID][c.TokenHash] = struct{}{}
	return nil
}

func (m *MemoryStore) GetChallenge(_ context.Context, tokenHash string) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[tokenHash]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) DeleteChallenge(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.challenges[tokenHash]; ok {
		delete(m.byIdentity[c.IdentityID], tokenHash)
		delete(m.challenges, tokenHash)
	}
	return nil
}

func (m *MemoryStore) dropChallengesLocked(identityID uuid.UUID) {
	for hash := range m.byIdentity[identityID] {
		delete(m.challenges, hash)
	}
	delete(m.byIdentity, identityID)
}

func codeSet(hashes []string) map[string]bool {
	set := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		set[h] = false
	}
	return set
}
