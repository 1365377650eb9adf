package core

import (
	"sync"

	"github.com/dkeye/Jukebox/internal/domain"
)

// memberSession implements MemberSession by pairing meta + transports.
type memberSession struct {
	meta *domain.Member

	mu       sync.RWMutex
	signal   SignalConnection
	listener ListenerConnection
}

func NewMemberSession(meta *domain.Member) MemberSession {
	return &memberSession{meta: meta}
}

func (m *memberSession) Meta() *domain.Member { return m.meta }

func (m *memberSession) Signal() SignalConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signal
}

func (m *memberSession) Listener() ListenerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listener
}

func (m *memberSession) UpdateSignal(sc SignalConnection) MemberSession {
	m.mu.Lock()
	m.signal = sc
	m.mu.Unlock()
	return m
}

func (m *memberSession) UpdateListener(lc ListenerConnection) MemberSession {
	m.mu.Lock()
	m.listener = lc
	m.mu.Unlock()
	return m
}
