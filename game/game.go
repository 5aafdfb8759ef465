package game

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

type GameState int

const (
	StateGameReady GameState = iota
	StateRoundReady
	StateTurnReady
	StateTurnProceeding
	StateEnd
)

func (s GameState) String() string {
	switch s {
	case StateGameReady:
		return "game-ready"
	case StateRoundReady:
		return "round-ready"
	case StateTurnReady:
		return "turn-ready"
	case StateTurnProceeding:
		return "turn-proceeding"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

const MinWordLength = 2

// starterSyllables seed the lookup of a round word.
var starterSyllables = []string{"가", "나", "다", "라", "마", "바", "사", "아", "자", "차", "카", "타", "파", "하"}

type TurnResult struct {
	Word           string
	Definition     Definition
	UserIndex      int
	UserId         int64
	ScoreDelta     int
	NextUserIndex  int
	NextUserId     int64
	NextStartsWith string
	TurnElapsed    int
	RoundTimeLeft  time.Duration
	Participants   []Participant
}

type RoundResult struct {
	Round             int
	DefeatedUserIndex int
	DefeatedUserId    int64
	ScoreDelta        int
	Participants      []Participant
}

type GameResult struct {
	RoundsPlayed int
	Ranking      []Participant
}

type Status struct {
	State                GameState
	RoundWord            string
	CurrentRound         int
	MaxRound             int
	CurrentTurnUserIndex int
	CurrentTurnUserId    int64
	TurnElapsed          int
	WordStartsWith       string
	Participants         []Participant
	Timer                TimerStatus
}

type gameHooks struct {
	onTimerTick func(TimerStatus)
	onTurnEnd   func(TurnResult)
	onRoundEnd  func(RoundResult)
	onGameEnd   func(GameResult)
}

func (h gameHooks) timerTick(s TimerStatus) {
	if h.onTimerTick != nil {
		h.onTimerTick(s)
	}
}

func (h gameHooks) turnEnd(r TurnResult) {
	if h.onTurnEnd != nil {
		h.onTurnEnd(r)
	}
}

func (h gameHooks) roundEnd(r RoundResult) {
	if h.onRoundEnd != nil {
		h.onRoundEnd(r)
	}
}

func (h gameHooks) gameEnd(r GameResult) {
	if h.onGameEnd != nil {
		h.onGameEnd(r)
	}
}

// Game is one playing session of a room. All methods must be called with
// the owning room's lock held; the lock is shared with the timer goroutine.
type Game struct {
	mu         *sync.Mutex
	roomId     string
	dictionary Dictionary
	clock      Clock
	hooks      gameHooks

	usersSequence         []Participant
	maxRound              int
	roundTimeLimit        time.Duration
	currentRound          int
	currentTurnUserIndex  int
	turnElapsed           int
	roundWord             []rune
	wordStartsWith        rune
	usedWords             map[string]struct{}
	lastDefeatedUserIndex int
	firstTurnOfRound      bool
	state                 GameState

	timer TimerState
	// turnSeq changes whenever the active turn ends, so a dictionary answer
	// arriving after the turn was forfeited can be recognised and dropped.
	turnSeq  uint64
	checking bool
}

type gameOptions struct {
	mu             *sync.Mutex
	roomId         string
	userIds        []int64
	maxRound       int
	roundTimeLimit time.Duration
	roundWord      string
	dictionary     Dictionary
	clock          Clock
	rng            *rand.Rand
	hooks          gameHooks
}

// newGame is initializeGame: participants are put in a random order and
// the game waits for its first round.
func newGame(opts gameOptions) *Game {
	participants := make([]Participant, 0, len(opts.userIds))
	for _, id := range Shuffle(opts.userIds, opts.rng) {
		participants = append(participants, Participant{UserId: id})
	}

	return &Game{
		mu:                   opts.mu,
		roomId:               opts.roomId,
		dictionary:           opts.dictionary,
		clock:                opts.clock,
		hooks:                opts.hooks,
		usersSequence:        participants,
		maxRound:             opts.maxRound,
		roundTimeLimit:       opts.roundTimeLimit,
		currentTurnUserIndex: -1,
		roundWord:            []rune(opts.roundWord),
		usedWords:            make(map[string]struct{}),
		state:                StateGameReady,
	}
}

func pickStarterSyllable(rng *rand.Rand) string {
	return starterSyllables[rng.IntN(len(starterSyllables))]
}

// findRoundWordCandidates asks the dictionary for words of exactly length
// runes. Failures are downgraded to an empty result.
func findRoundWordCandidates(ctx context.Context, dictionary Dictionary, syllable string, length int) []string {
	words, err := dictionary.FindWordsStartingWith(ctx, syllable, length, length)
	if err != nil {
		slog.Warn("Round word lookup failed", "syllable", syllable, "error", err.Error())
		return nil
	}

	candidates := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= length {
			candidates = append(candidates, w)
		}
	}
	return candidates
}

func pickRoundWord(candidates []string, rng *rand.Rand) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rng.IntN(len(candidates))]
}

func (g *Game) State() GameState {
	return g.state
}

func (g *Game) indexOf(userId int64) int {
	return slices.IndexFunc(g.usersSequence, func(p Participant) bool { return p.UserId == userId })
}

func (g *Game) participants() []Participant {
	return slices.Clone(g.usersSequence)
}

func (g *Game) turnUserId() int64 {
	if g.currentTurnUserIndex < 0 || g.currentTurnUserIndex >= len(g.usersSequence) {
		return 0
	}
	return g.usersSequence[g.currentTurnUserIndex].UserId
}

func (g *Game) Status() Status {
	status := Status{
		State:                g.state,
		RoundWord:            string(g.roundWord),
		CurrentRound:         g.currentRound,
		MaxRound:             g.maxRound,
		CurrentTurnUserIndex: g.currentTurnUserIndex,
		CurrentTurnUserId:    g.turnUserId(),
		TurnElapsed:          g.turnElapsed,
		Participants:         g.participants(),
		Timer:                g.timerStatus(),
	}
	if g.wordStartsWith != 0 {
		status.WordStartsWith = string(g.wordStartsWith)
	}
	return status
}

func (g *Game) Ranking() []Participant {
	return Ranking(g.usersSequence)
}

// InitializeRound starts the next round. The participant defeated in the
// previous round leads it.
func (g *Game) InitializeRound() error {
	if g.state != StateGameReady {
		return ErrInvalidState
	}
	if g.currentRound >= len(g.roundWord) {
		return ErrRoundWordUnavailable
	}

	g.currentTurnUserIndex = 0
	if g.currentRound > 0 {
		g.currentTurnUserIndex = g.lastDefeatedUserIndex % len(g.usersSequence)
	}
	g.turnElapsed = 1
	clear(g.usedWords)
	g.wordStartsWith = g.roundWord[g.currentRound]
	g.firstTurnOfRound = true
	g.state = StateRoundReady

	slog.Debug("Round initialized",
		"room_id", g.roomId,
		"round", g.currentRound,
		"starts_with", string(g.wordStartsWith),
		"leader", g.turnUserId(),
	)
	return nil
}

func (g *Game) StartTurn(userId int64) error {
	if g.state != StateRoundReady {
		return ErrInvalidState
	}
	if g.turnUserId() != userId {
		return ErrNotTurnHolder
	}

	g.state = StateTurnReady
	g.initializeTurn()
	g.startTimer()
	g.state = StateTurnProceeding
	return nil
}

func (g *Game) lookupDefinition(ctx context.Context, word string) *Definition {
	def, err := g.dictionary.LookupDefinition(ctx, word)
	if err != nil {
		slog.Warn("Word lookup failed", "room_id", g.roomId, "word", word, "error", err.Error())
		return nil
	}
	return def
}

// CheckWord validates a submission from the turn holder. The room lock is
// released while the dictionary is queried and the turn timer is paused for
// that whole window.
func (g *Game) CheckWord(ctx context.Context, userId int64, word string) (TurnResult, error) {
	if g.state != StateTurnProceeding {
		return TurnResult{}, ErrInvalidState
	}
	if g.checking {
		return TurnResult{}, ErrWordCheckInProgress
	}
	if g.turnUserId() != userId {
		return TurnResult{}, ErrNotTurnHolder
	}

	word = strings.TrimSpace(word)
	letters := []rune(word)
	if len(letters) < MinWordLength {
		return TurnResult{}, ErrWordTooShort
	}
	if g.wordStartsWith != 0 && letters[0] != g.wordStartsWith {
		return TurnResult{}, ErrWrongStartingLetter
	}
	if _, used := g.usedWords[word]; used {
		return TurnResult{}, ErrDuplicateWord
	}

	g.pauseTimer()
	if g.timeExhausted() {
		g.finishRound()
		return TurnResult{}, ErrTimeExpired
	}

	seq := g.turnSeq
	g.checking = true
	g.mu.Unlock()
	def := g.lookupDefinition(ctx, word)
	g.mu.Lock()
	g.checking = false

	if seq != g.turnSeq || g.state != StateTurnProceeding {
		return TurnResult{}, ErrTurnChanged
	}

	if def == nil {
		g.resumeTimer()
		return TurnResult{}, ErrUndefinedWord
	}

	return g.acceptWord(word, letters, *def), nil
}

func (g *Game) acceptWord(word string, letters []rune, def Definition) TurnResult {
	g.usedWords[word] = struct{}{}

	scorer := g.currentTurnUserIndex
	score := SuccessScore(len(letters), g.turnElapsed, g.timer.personalTimeLimit, g.timer.personalTimeLeft)
	applied := g.usersSequence[scorer].applyScoreDelta(score)

	g.currentTurnUserIndex = (scorer + 1) % len(g.usersSequence)
	g.turnElapsed++
	g.wordStartsWith = letters[len(letters)-1]
	g.turnSeq++
	g.state = StateRoundReady

	result := TurnResult{
		Word:           word,
		Definition:     def,
		UserIndex:      scorer,
		UserId:         g.usersSequence[scorer].UserId,
		ScoreDelta:     applied,
		NextUserIndex:  g.currentTurnUserIndex,
		NextUserId:     g.turnUserId(),
		NextStartsWith: string(g.wordStartsWith),
		TurnElapsed:    g.turnElapsed,
		RoundTimeLeft:  max(g.timer.roundTimeLeft, 0),
		Participants:   g.participants(),
	}

	slog.Debug("Word accepted", "room_id", g.roomId, "user_id", result.UserId, "word", word, "score", applied)
	g.hooks.turnEnd(result)
	return result
}

// finishRound closes the round and, after the last round, the game.
func (g *Game) finishRound() {
	if g.endRound() {
		g.endGame()
	}
}

// endRound penalizes the current turn holder and closes the round. It
// reports whether that was the last round; ending the game is left to the
// caller so a departing holder can be removed from the ranking first.
func (g *Game) endRound() (last bool) {
	g.stopTimer()

	defeated := g.currentTurnUserIndex
	applied := g.usersSequence[defeated].applyScoreDelta(FailureScoreDelta)
	g.lastDefeatedUserIndex = defeated
	g.currentRound++
	g.turnSeq++
	g.checking = false
	g.state = StateGameReady

	g.hooks.roundEnd(RoundResult{
		Round:             g.currentRound - 1,
		DefeatedUserIndex: defeated,
		DefeatedUserId:    g.usersSequence[defeated].UserId,
		ScoreDelta:        applied,
		Participants:      g.participants(),
	})

	return g.currentRound >= g.maxRound
}

func (g *Game) endGame() {
	if g.state == StateEnd {
		return
	}
	g.stopTimer()
	g.state = StateEnd
	g.turnSeq++
	g.checking = false

	slog.Info("Game ended", "room_id", g.roomId, "rounds", g.currentRound)
	g.hooks.gameEnd(GameResult{
		RoundsPlayed: g.currentRound,
		Ranking:      g.Ranking(),
	})
}

// abort stops the game without firing any callback. Used when the room is
// torn down.
func (g *Game) abort() {
	g.stopTimer()
	g.state = StateEnd
	g.turnSeq++
	g.checking = false
}

func (g *Game) turnIsHeld() bool {
	switch g.state {
	case StateRoundReady, StateTurnReady, StateTurnProceeding:
		return true
	}
	return false
}

// DelUser removes a participant. A turn holder forfeits the round first.
func (g *Game) DelUser(userId int64) error {
	idx := g.indexOf(userId)
	if idx < 0 {
		return ErrNotParticipant
	}

	lastRound := false
	if idx == g.currentTurnUserIndex && g.turnIsHeld() {
		lastRound = g.endRound()
	}

	g.usersSequence = slices.Delete(g.usersSequence, idx, idx+1)
	if len(g.usersSequence) == 0 {
		g.currentTurnUserIndex = -1
		g.endGame()
		return nil
	}

	if idx < g.currentTurnUserIndex {
		g.currentTurnUserIndex--
	}
	if idx < g.lastDefeatedUserIndex {
		g.lastDefeatedUserIndex--
	}
	if g.currentTurnUserIndex >= 0 {
		g.currentTurnUserIndex %= len(g.usersSequence)
	}
	g.lastDefeatedUserIndex %= len(g.usersSequence)

	if lastRound || len(g.usersSequence) <= 1 {
		g.endGame()
	}
	return nil
}
