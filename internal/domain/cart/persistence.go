// internal/domain/cart/persistence.go
package cart

import (
	"context"
	"sync"
)

// Persistence stores the serialized item sequence of one cart.
// Load returns (nil, nil) when nothing is stored.
type Persistence interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// MemoryPersistence keeps the cart in process memory
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
	// Writes counts Save calls
	Writes int
}

// NewMemoryPersistence returns a store seeded with data, which may be nil
func NewMemoryPersistence(data []byte) *MemoryPersistence {
	return &MemoryPersistence{data: data}
}

func (m *MemoryPersistence) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryPersistence) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.Writes++
	return nil
}

func (m *MemoryPersistence) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Raw returns the currently stored bytes
func (m *MemoryPersistence) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}
