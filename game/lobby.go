package game

import (
	"cmp"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

const DefaultMaxRooms = 999

type LobbyOptions struct {
	Dictionary  Dictionary
	Clock       Clock
	IdGenerator UniqueIdGenerator
	MaxRooms    int
	Rand        *rand.Rand
}

type onlineUser struct {
	roomId string
}

type LeaveResult struct {
	RoomId        string
	RoomDestroyed bool
	Index         int
	NewOwnerIndex int
}

// Lobby is the registry of rooms and online users. Room creation,
// destruction and number allocation are serialized by its lock; the lock
// order is always Lobby before GameRoom.
type Lobby struct {
	locker      sync.RWMutex
	rooms       map[string]*GameRoom
	onlineUsers map[int64]*onlineUser
	roomNumbers *RoomNumberPool
	idGenerator UniqueIdGenerator
	dictionary  Dictionary
	clock       Clock
	rng         *rand.Rand
}

func NewLobby(opts LobbyOptions) *Lobby {
	if opts.Clock == nil {
		opts.Clock = NewSystemClock()
	}
	if opts.IdGenerator == nil {
		opts.IdGenerator = NewUUIDGenerator()
	}
	if opts.MaxRooms <= 0 {
		opts.MaxRooms = DefaultMaxRooms
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
	}

	return &Lobby{
		rooms:       make(map[string]*GameRoom),
		onlineUsers: make(map[int64]*onlineUser),
		roomNumbers: NewRoomNumberPool(opts.MaxRooms),
		idGenerator: opts.IdGenerator,
		dictionary:  opts.Dictionary,
		clock:       opts.Clock,
		rng:         opts.Rand,
	}
}

// EnterUser marks a user online with no room. Calling it again keeps the
// current room assignment.
func (l *Lobby) EnterUser(userId int64) {
	l.locker.Lock()
	defer l.locker.Unlock()

	if _, ok := l.onlineUsers[userId]; ok {
		return
	}
	l.onlineUsers[userId] = &onlineUser{}
}

func (l *Lobby) CreateRoom(userId int64, cfg RoomConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	l.locker.Lock()
	defer l.locker.Unlock()

	user, ok := l.onlineUsers[userId]
	if !ok {
		return "", ErrUserNotOnline
	}
	if user.roomId != "" {
		return "", ErrAlreadyInRoom
	}

	number, err := l.roomNumbers.Allocate()
	if err != nil {
		return "", err
	}

	id := l.idGenerator.Generate()
	room := newGameRoom(id, number, userId, cfg, roomDeps{
		dictionary: l.dictionary,
		clock:      l.clock,
		rng:        rand.New(rand.NewPCG(l.rng.Uint64(), l.rng.Uint64())),
	})
	l.rooms[id] = room
	user.roomId = id

	slog.Info("Room created", "room_id", id, "number", number, "owner", userId)
	return id, nil
}

func (l *Lobby) TryJoiningRoom(roomId string, userId int64, password string) (*GameRoom, error) {
	l.locker.Lock()
	defer l.locker.Unlock()

	user, ok := l.onlineUsers[userId]
	if !ok {
		return nil, ErrUserNotOnline
	}
	if user.roomId != "" {
		return nil, ErrAlreadyInRoom
	}

	room, ok := l.rooms[roomId]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := room.TryJoin(userId, password); err != nil {
		return nil, err
	}

	user.roomId = roomId
	return room, nil
}

func (l *Lobby) leaveRoomLocked(userId int64) (LeaveResult, error) {
	user, ok := l.onlineUsers[userId]
	if !ok {
		return LeaveResult{}, ErrUserNotOnline
	}
	if user.roomId == "" {
		return LeaveResult{}, ErrNotInRoom
	}

	roomId := user.roomId
	user.roomId = ""

	room, ok := l.rooms[roomId]
	if !ok {
		return LeaveResult{}, ErrRoomNotFound
	}

	res, err := room.DelUser(userId)
	if err != nil {
		return LeaveResult{}, err
	}

	result := LeaveResult{RoomId: roomId, Index: res.Index, NewOwnerIndex: res.NewOwnerIndex}
	if res.Remaining == 0 {
		room.Destroy()
		delete(l.rooms, roomId)
		l.roomNumbers.Dispose(room.Number())
		result.RoomDestroyed = true
		slog.Info("Room destroyed", "room_id", roomId, "number", room.Number())
	}
	return result, nil
}

// LeaveRoom removes the user from their room. onOwnerChange fires after the
// lobby lock is released when ownership moved to another member.
func (l *Lobby) LeaveRoom(userId int64, onOwnerChange func(roomId string, newOwnerIndex int)) (LeaveResult, error) {
	l.locker.Lock()
	result, err := l.leaveRoomLocked(userId)
	l.locker.Unlock()

	if err != nil {
		return result, err
	}
	if result.NewOwnerIndex >= 0 && onOwnerChange != nil {
		onOwnerChange(result.RoomId, result.NewOwnerIndex)
	}
	return result, nil
}

// QuitUser leaves the current room, if any, and forgets the user.
func (l *Lobby) QuitUser(userId int64, onOwnerChange func(roomId string, newOwnerIndex int)) (LeaveResult, error) {
	l.locker.Lock()
	var (
		result LeaveResult
		err    error
	)
	if user, ok := l.onlineUsers[userId]; ok && user.roomId != "" {
		result, err = l.leaveRoomLocked(userId)
	}
	delete(l.onlineUsers, userId)
	l.locker.Unlock()

	if err != nil {
		slog.Warn("Leaving room on quit failed", "user_id", userId, "error", err.Error())
		return LeaveResult{}, err
	}
	if result.NewOwnerIndex >= 0 && result.RoomId != "" && onOwnerChange != nil {
		onOwnerChange(result.RoomId, result.NewOwnerIndex)
	}
	return result, nil
}

func (l *Lobby) GetRoom(roomId string) *GameRoom {
	l.locker.RLock()
	defer l.locker.RUnlock()
	return l.rooms[roomId]
}

func (l *Lobby) GetRoomByUserId(userId int64) *GameRoom {
	l.locker.RLock()
	defer l.locker.RUnlock()

	user, ok := l.onlineUsers[userId]
	if !ok || user.roomId == "" {
		return nil
	}
	return l.rooms[user.roomId]
}

func (l *Lobby) IsUserAtLobby(userId int64) bool {
	l.locker.RLock()
	defer l.locker.RUnlock()

	user, ok := l.onlineUsers[userId]
	return ok && user.roomId == ""
}

func (l *Lobby) IsUserOnline(userId int64) bool {
	l.locker.RLock()
	defer l.locker.RUnlock()

	_, ok := l.onlineUsers[userId]
	return ok
}

func (l *Lobby) RoomCount() int {
	l.locker.RLock()
	defer l.locker.RUnlock()
	return len(l.rooms)
}

// ListRooms returns every room ordered by room number.
func (l *Lobby) ListRooms() []RoomInfo {
	l.locker.RLock()
	rooms := make([]*GameRoom, 0, len(l.rooms))
	for _, r := range l.rooms {
		rooms = append(rooms, r)
	}
	l.locker.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		info := r.Info()
		if info.State == RoomDestroyed {
			continue
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b RoomInfo) int { return cmp.Compare(a.Number, b.Number) })
	return infos
}

// Shutdown destroys every room so no turn timer outlives the process.
func (l *Lobby) Shutdown() {
	l.locker.Lock()
	defer l.locker.Unlock()

	for id, room := range l.rooms {
		room.Destroy()
		l.roomNumbers.Dispose(room.Number())
		delete(l.rooms, id)
	}
	for _, user := range l.onlineUsers {
		user.roomId = ""
	}
}
