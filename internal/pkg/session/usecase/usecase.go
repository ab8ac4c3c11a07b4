package usecase

import (
	"sync"
)

// MemoryStorage keeps the persisted session keys in process memory.
type MemoryStorage struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	storage := &MemoryStorage{
		values: make(map[string]string),
	}

	return storage
}
