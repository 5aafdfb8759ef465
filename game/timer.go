package game

import (
	"log/slog"
	"time"
)

const TickInterval = time.Second

// The personal budget of a turn is a tenth of the round budget.
const personalTimeDivisor = 10

// TimerState is owned by a Game. The repeating handle (ticker + done) only
// exists while a turn is proceeding and the dictionary is not being queried.
type TimerState struct {
	startTime         time.Time
	roundTimeLeft     time.Duration
	personalTimeLeft  time.Duration
	personalTimeLimit time.Duration
	generation        uint64
	ticker            Ticker
	done              chan struct{}
}

type TimerStatus struct {
	RoundTimeLeft     time.Duration
	PersonalTimeLeft  time.Duration
	PersonalTimeLimit time.Duration
	TurnUserIndex     int
	TurnUserId        int64
}

func (g *Game) initializeTurn() {
	if g.firstTurnOfRound {
		g.timer.roundTimeLeft = g.roundTimeLimit
		g.firstTurnOfRound = false
	}
	g.timer.personalTimeLimit = g.roundTimeLimit / personalTimeDivisor
	g.timer.personalTimeLeft = g.timer.personalTimeLimit
}

func (g *Game) startTimer() {
	g.stopTimer()
	g.timer.startTime = g.clock.Now()
	g.timer.generation++
	g.timer.ticker = g.clock.NewTicker(TickInterval)
	g.timer.done = make(chan struct{})
	go g.runTimer(g.timer.ticker, g.timer.done, g.timer.generation)
}

func (g *Game) runTimer(ticker Ticker, done <-chan struct{}, generation uint64) {
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C():
			g.mu.Lock()
			keepRunning := g.handleTick(now, generation)
			g.mu.Unlock()
			if !keepRunning {
				return
			}
		}
	}
}

func (g *Game) stopTimer() {
	if g.timer.ticker == nil {
		return
	}
	g.timer.ticker.Stop()
	close(g.timer.done)
	g.timer.ticker = nil
	g.timer.done = nil
}

func (g *Game) timerRunning() bool {
	return g.timer.ticker != nil
}

func (g *Game) consumeElapsed(now time.Time) {
	elapsed := max(now.Sub(g.timer.startTime), 0)
	g.timer.roundTimeLeft -= elapsed
	g.timer.personalTimeLeft -= elapsed
	g.timer.startTime = now
}

func (g *Game) timeExhausted() bool {
	return g.timer.roundTimeLeft <= 0 || g.timer.personalTimeLeft <= 0
}

// handleTick must be called with the room lock held. It returns false once
// the handle that produced the tick is no longer the live one.
func (g *Game) handleTick(now time.Time, generation uint64) bool {
	if generation != g.timer.generation || !g.timerRunning() || g.state != StateTurnProceeding {
		return false
	}

	g.consumeElapsed(now)

	if g.timeExhausted() {
		slog.Info("Turn timed out",
			"room_id", g.roomId,
			"user_id", g.usersSequence[g.currentTurnUserIndex].UserId,
			"round", g.currentRound,
		)
		g.finishRound()
		return false
	}

	g.hooks.timerTick(g.timerStatus())
	return true
}

// pauseTimer freezes both budgets. The matching resumeTimer re-anchors the
// clock, so the paused interval is never charged to the turn holder.
func (g *Game) pauseTimer() {
	if !g.timerRunning() {
		return
	}
	g.consumeElapsed(g.clock.Now())
	g.stopTimer()
}

func (g *Game) resumeTimer() {
	g.startTimer()
}

func (g *Game) timerStatus() TimerStatus {
	status := TimerStatus{
		RoundTimeLeft:     max(g.timer.roundTimeLeft, 0),
		PersonalTimeLeft:  max(g.timer.personalTimeLeft, 0),
		PersonalTimeLimit: g.timer.personalTimeLimit,
		TurnUserIndex:     g.currentTurnUserIndex,
	}
	if g.currentTurnUserIndex >= 0 && g.currentTurnUserIndex < len(g.usersSequence) {
		status.TurnUserId = g.usersSequence[g.currentTurnUserIndex].UserId
	}
	return status
}
