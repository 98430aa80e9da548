// Package lock реализует взаимное исключение по ключу для последовательной обработки
// бронирований одного номера.
package lock

import (
	"context"
	"sync"
)

// Local реализует блокировку по ключу в пределах одного процесса.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// NewLocal создаёт блокировку в памяти процесса.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock захватывает ключ и возвращает функцию освобождения.
// Ожидание прерывается отменой контекста.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			l.release(key, s)
		})
	}, nil
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
