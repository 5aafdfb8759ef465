package session

import (
	"maps"
	"time"
	"wordchain/game"
)

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func participantsData(participants []game.Participant) []any {
	list := make([]any, len(participants))
	for i, p := range participants {
		list[i] = map[string]any{"userId": p.UserId, "score": p.Score}
	}
	return list
}

func roomInfoData(info game.RoomInfo) map[string]any {
	users := make([]any, len(info.Users))
	for i, u := range info.Users {
		users[i] = map[string]any{"userId": u.UserId, "isReady": u.IsReady}
	}
	return map[string]any{
		"id":             info.Id,
		"number":         info.Number,
		"title":          info.Title,
		"public":         info.Public,
		"maxUserCount":   info.MaxUserCount,
		"maxRound":       info.MaxRound,
		"roundTimeLimit": info.RoundTimeLimit,
		"ownerIndex":     info.OwnerIndex,
		"state":          info.State.String(),
		"users":          users,
	}
}

func roomListData(infos []game.RoomInfo) map[string]any {
	rooms := make([]any, len(infos))
	for i, info := range infos {
		rooms[i] = roomInfoData(info)
	}
	return map[string]any{"rooms": rooms}
}

func timerData(s game.TimerStatus) map[string]any {
	return map[string]any{
		"roundTimeLeft":     millis(s.RoundTimeLeft),
		"personalTimeLeft":  millis(s.PersonalTimeLeft),
		"personalTimeLimit": millis(s.PersonalTimeLimit),
		"turnUserIndex":     s.TurnUserIndex,
		"turnUserId":        s.TurnUserId,
	}
}

func statusData(s game.Status) map[string]any {
	return map[string]any{
		"state":                s.State.String(),
		"roundWord":            s.RoundWord,
		"currentRound":         s.CurrentRound,
		"maxRound":             s.MaxRound,
		"currentTurnUserIndex": s.CurrentTurnUserIndex,
		"currentTurnUserId":    s.CurrentTurnUserId,
		"turnElapsed":          s.TurnElapsed,
		"wordStartsWith":       s.WordStartsWith,
		"participants":         participantsData(s.Participants),
		"timer":                timerData(s.Timer),
	}
}

func turnResultData(r game.TurnResult) map[string]any {
	return map[string]any{
		"word":           r.Word,
		"meaning":        r.Definition.Meaning,
		"userIndex":      r.UserIndex,
		"userId":         r.UserId,
		"scoreDelta":     r.ScoreDelta,
		"nextUserIndex":  r.NextUserIndex,
		"nextUserId":     r.NextUserId,
		"nextStartsWith": r.NextStartsWith,
		"turnElapsed":    r.TurnElapsed,
		"roundTimeLeft":  millis(r.RoundTimeLeft),
		"participants":   participantsData(r.Participants),
	}
}

func roundResultData(r game.RoundResult) map[string]any {
	return map[string]any{
		"round":             r.Round,
		"defeatedUserIndex": r.DefeatedUserIndex,
		"defeatedUserId":    r.DefeatedUserId,
		"scoreDelta":        r.ScoreDelta,
		"participants":      participantsData(r.Participants),
	}
}

func gameResultData(r game.GameResult) map[string]any {
	return map[string]any{
		"roundsPlayed": r.RoundsPlayed,
		"ranking":      participantsData(r.Ranking),
	}
}

func errorData(err error) map[string]any {
	kind := game.KindOf(err)
	return map[string]any{
		"ok":    false,
		"error": err.Error(),
		"kind":  kind.String(),
	}
}

func okData(fields map[string]any) map[string]any {
	data := map[string]any{"ok": true}
	maps.Copy(data, fields)
	return data
}
