package credentials

import "sync"

// Memory - хранилище в памяти процесса (тесты, эфемерные сессии).
type Memory struct {
	mu    sync.RWMutex
	slots map[Slot]string
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[Slot]string, len(Slots))}
}

func (m *Memory) Get(slot Slot) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.slots[slot]
	return v, ok && v != ""
}

func (m *Memory) Set(slot Slot, value string) {
	if !valid(slot) {
		return
	}

	m.mu.Lock()
	m.slots[slot] = value
	m.mu.Unlock()
}

func (m *Memory) Clear(slot Slot) {
	m.mu.Lock()
	delete(m.slots, slot)
	m.mu.Unlock()
}

func (m *Memory) Close() error { return nil }

var _ ClosableStore = (*Memory)(nil)
