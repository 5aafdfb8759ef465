package game

import (
	"sync"

	"github.com/google/uuid"
)

type uuidGenerator struct{}

func NewUUIDGenerator() UniqueIdGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// RoomNumberPool hands out the short room numbers shown in the room list.
// Numbers run from 1 to size and are allocated round-robin starting after
// the last number handed out, so a freshly freed number is not reused
// immediately.
type RoomNumberPool struct {
	size   int
	cursor int
	inUse  map[int]struct{}
	locker sync.Mutex
}

func NewRoomNumberPool(size int) *RoomNumberPool {
	return &RoomNumberPool{
		size:  size,
		inUse: make(map[int]struct{}, size),
	}
}

func (p *RoomNumberPool) Allocate() (int, error) {
	p.locker.Lock()
	defer p.locker.Unlock()

	if len(p.inUse) >= p.size {
		return 0, ErrRoomCapacityExceeded
	}

	for range p.size {
		p.cursor = p.cursor%p.size + 1
		if _, taken := p.inUse[p.cursor]; !taken {
			p.inUse[p.cursor] = struct{}{}
			return p.cursor, nil
		}
	}

	return 0, ErrRoomCapacityExceeded
}

func (p *RoomNumberPool) Dispose(number int) {
	p.locker.Lock()
	delete(p.inUse, number)
	p.locker.Unlock()
}

func (p *RoomNumberPool) InUse() int {
	p.locker.Lock()
	defer p.locker.Unlock()
	return len(p.inUse)
}
