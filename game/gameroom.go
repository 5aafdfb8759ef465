package game

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

type RoomState int

const (
	RoomPreparing RoomState = iota
	RoomPlaying
	RoomDestroyed
)

func (s RoomState) String() string {
	switch s {
	case RoomPreparing:
		return "preparing"
	case RoomPlaying:
		return "playing"
	case RoomDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

type RoomUser struct {
	UserId  int64
	IsReady bool
}

// RoomInfo is a point-in-time copy of a room, safe to hand to other goroutines.
type RoomInfo struct {
	Id             string
	Number         int
	Title          string
	Public         bool
	MaxUserCount   int
	MaxRound       int
	RoundTimeLimit int
	OwnerIndex     int
	Users          []RoomUser
	State          RoomState
}

// Callbacks receive the room's member ids as of the event. They run with
// the room lock held and must not call back into the room or the lobby.
type Callbacks struct {
	OnTimerTick func(members []int64, status TimerStatus)
	OnTurnEnd   func(members []int64, result TurnResult)
	OnRoundEnd  func(members []int64, result RoundResult)
	OnGameEnd   func(members []int64, result GameResult)
}

type DelUserResult struct {
	Index         int
	Remaining     int
	NewOwnerIndex int
}

type roomDeps struct {
	dictionary Dictionary
	clock      Clock
	rng        *rand.Rand
}

type GameRoom struct {
	mu sync.Mutex

	id             string
	number         int
	title          string
	password       string
	maxUserCount   int
	maxRound       int
	roundTimeLimit time.Duration

	roomOwnerUserIndex int
	userlist           []RoomUser
	state              RoomState
	game               *Game
	starting           bool

	dictionary Dictionary
	clock      Clock
	rng        *rand.Rand
}

func newGameRoom(id string, number int, ownerId int64, cfg RoomConfig, deps roomDeps) *GameRoom {
	room := &GameRoom{
		id:             id,
		number:         number,
		title:          cfg.Title,
		password:       cfg.Password,
		maxUserCount:   cfg.MaxUserCount,
		maxRound:       cfg.MaxRound,
		roundTimeLimit: cfg.roundTimeLimit(),
		userlist:       make([]RoomUser, 0, cfg.MaxUserCount),
		state:          RoomPreparing,
		dictionary:     deps.dictionary,
		clock:          deps.clock,
		rng:            deps.rng,
	}
	room.userlist = append(room.userlist, RoomUser{UserId: ownerId})
	return room
}

func (r *GameRoom) Id() string {
	return r.id
}

func (r *GameRoom) Number() int {
	return r.number
}

func (r *GameRoom) indexOf(userId int64) int {
	return slices.IndexFunc(r.userlist, func(u RoomUser) bool { return u.UserId == userId })
}

func (r *GameRoom) memberIds() []int64 {
	ids := make([]int64, len(r.userlist))
	for i, u := range r.userlist {
		ids[i] = u.UserId
	}
	return ids
}

func (r *GameRoom) isOwner(userId int64) bool {
	return r.roomOwnerUserIndex < len(r.userlist) && r.userlist[r.roomOwnerUserIndex].UserId == userId
}

func (r *GameRoom) info() RoomInfo {
	return RoomInfo{
		Id:             r.id,
		Number:         r.number,
		Title:          r.title,
		Public:         r.password == "",
		MaxUserCount:   r.maxUserCount,
		MaxRound:       r.maxRound,
		RoundTimeLimit: int(r.roundTimeLimit / time.Second),
		OwnerIndex:     r.roomOwnerUserIndex,
		Users:          slices.Clone(r.userlist),
		State:          r.state,
	}
}

func (r *GameRoom) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info()
}

func (r *GameRoom) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userlist)
}

func (r *GameRoom) GameStatus() (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return Status{}, false
	}
	return r.game.Status(), true
}

func (r *GameRoom) TryJoin(userId int64, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RoomDestroyed {
		return ErrRoomDestroyed
	}
	if r.password != "" && r.password != password {
		return ErrWrongPassword
	}
	if len(r.userlist) >= r.maxUserCount {
		return ErrRoomFull
	}
	if r.indexOf(userId) >= 0 {
		return ErrAlreadyInRoom
	}

	r.userlist = append(r.userlist, RoomUser{UserId: userId})
	return nil
}

func (r *GameRoom) SwitchReadyState(userId int64, ready bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RoomDestroyed {
		return -1, ErrRoomDestroyed
	}
	if r.state != RoomPreparing {
		return -1, ErrInvalidState
	}
	idx := r.indexOf(userId)
	if idx < 0 {
		return -1, ErrNotInRoom
	}

	r.userlist[idx].IsReady = ready
	return idx, nil
}

func (r *GameRoom) SetNewRoomOwner() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setNewRoomOwner()
}

// setNewRoomOwner clears every ready flag and picks the owner uniformly
// among all current members.
func (r *GameRoom) setNewRoomOwner() int {
	for i := range r.userlist {
		r.userlist[i].IsReady = false
	}
	if len(r.userlist) == 0 {
		r.roomOwnerUserIndex = 0
		return -1
	}
	r.roomOwnerUserIndex = r.rng.IntN(len(r.userlist))
	return r.roomOwnerUserIndex
}

func (r *GameRoom) checkStartable(occurer int64) error {
	if r.state == RoomDestroyed {
		return ErrRoomDestroyed
	}
	if r.state != RoomPreparing || r.starting {
		return ErrInvalidState
	}
	if !r.isOwner(occurer) {
		return ErrNotRoomOwner
	}
	if len(r.userlist) < MinUserCount {
		return ErrNotEnoughUsers
	}
	for i, u := range r.userlist {
		if i != r.roomOwnerUserIndex && !u.IsReady {
			return ErrNotAllReady
		}
	}
	return nil
}

// StartGame moves the room to playing. The round word is fetched without
// holding the room lock; the start conditions are checked again afterwards.
func (r *GameRoom) StartGame(ctx context.Context, occurer int64, callbacks Callbacks) (Status, error) {
	r.mu.Lock()
	if err := r.checkStartable(occurer); err != nil {
		r.mu.Unlock()
		return Status{}, err
	}
	r.starting = true
	syllable := pickStarterSyllable(r.rng)
	r.mu.Unlock()

	candidates := findRoundWordCandidates(ctx, r.dictionary, syllable, r.maxRound)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.starting = false

	if err := r.checkStartable(occurer); err != nil {
		return Status{}, err
	}

	roundWord := pickRoundWord(candidates, r.rng)
	if roundWord == "" {
		slog.Warn("No round word available, game not started", "room_id", r.id, "syllable", syllable)
		return Status{}, ErrRoundWordUnavailable
	}

	r.game = newGame(gameOptions{
		mu:             &r.mu,
		roomId:         r.id,
		userIds:        r.memberIds(),
		maxRound:       r.maxRound,
		roundTimeLimit: r.roundTimeLimit,
		roundWord:      roundWord,
		dictionary:     r.dictionary,
		clock:          r.clock,
		rng:            r.rng,
		hooks:          r.wrapCallbacks(callbacks),
	})
	r.state = RoomPlaying

	slog.Info("Game started", "room_id", r.id, "players", len(r.userlist), "round_word", roundWord)
	return r.game.Status(), nil
}

func (r *GameRoom) wrapCallbacks(cb Callbacks) gameHooks {
	return gameHooks{
		onTimerTick: func(s TimerStatus) {
			if cb.OnTimerTick != nil {
				cb.OnTimerTick(r.memberIds(), s)
			}
		},
		onTurnEnd: func(res TurnResult) {
			if cb.OnTurnEnd != nil {
				cb.OnTurnEnd(r.memberIds(), res)
			}
		},
		onRoundEnd: func(res RoundResult) {
			if cb.OnRoundEnd != nil {
				cb.OnRoundEnd(r.memberIds(), res)
			}
		},
		onGameEnd: func(res GameResult) {
			if r.state != RoomDestroyed {
				r.state = RoomPreparing
			}
			r.game = nil
			if cb.OnGameEnd != nil {
				cb.OnGameEnd(r.memberIds(), res)
			}
		},
	}
}

func (r *GameRoom) activeGame() (*Game, error) {
	if r.state == RoomDestroyed {
		return nil, ErrRoomDestroyed
	}
	if r.game == nil {
		return nil, ErrInvalidState
	}
	return r.game, nil
}

func (r *GameRoom) StartRound(occurer int64) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.activeGame()
	if err != nil {
		return Status{}, err
	}
	if !r.isOwner(occurer) {
		return Status{}, ErrNotRoomOwner
	}
	if err := g.InitializeRound(); err != nil {
		return Status{}, err
	}
	return g.Status(), nil
}

func (r *GameRoom) StartTurn(occurer int64) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.activeGame()
	if err != nil {
		return Status{}, err
	}
	if err := g.StartTurn(occurer); err != nil {
		return Status{}, err
	}
	return g.Status(), nil
}

func (r *GameRoom) SayWord(ctx context.Context, userId int64, word string) (TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.activeGame()
	if err != nil {
		return TurnResult{}, err
	}
	if g.State() != StateTurnProceeding {
		return TurnResult{}, ErrInvalidState
	}
	// CheckWord drops and retakes r.mu around the dictionary call.
	return g.CheckWord(ctx, userId, word)
}

// DelUser removes a member. A running game loses the participant too, which
// may end the round or the whole game. When the owner leaves and members
// remain, a new owner is drawn.
func (r *GameRoom) DelUser(userId int64) (DelUserResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(userId)
	if idx < 0 {
		return DelUserResult{}, ErrNotInRoom
	}

	wasOwner := idx == r.roomOwnerUserIndex
	r.userlist = slices.Delete(r.userlist, idx, idx+1)
	if idx < r.roomOwnerUserIndex {
		r.roomOwnerUserIndex--
	}

	if r.game != nil {
		// non-participants joined after the game started
		_ = r.game.DelUser(userId)
	}

	result := DelUserResult{Index: idx, Remaining: len(r.userlist), NewOwnerIndex: -1}
	if wasOwner && len(r.userlist) > 0 {
		result.NewOwnerIndex = r.setNewRoomOwner()
	}
	return result, nil
}

// Destroy stops any running game without callbacks and marks the room dead.
func (r *GameRoom) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game != nil {
		r.game.abort()
		r.game = nil
	}
	r.state = RoomDestroyed
}
