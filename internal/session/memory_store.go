package session

import (
	"context"

	"puntoventa/terminal/internal/domain"
)

// MemoryStore keeps the session for the lifetime of the process. Default
// when no redis address is configured.
type MemoryStore struct {
	sess domain.Session
	set  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (domain.Session, bool, error) {
	return m.sess, m.set, nil
}

func (m *MemoryStore) Save(_ context.Context, sess domain.Session) error {
	m.sess = sess
	m.set = true
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.sess = domain.Session{}
	m.set = false
	return nil
}
