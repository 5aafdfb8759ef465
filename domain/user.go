package domain

import "time"

type User struct {
	Id           int64
	Username     string
	PasswordHash string
}

type Report struct {
	ReporterId int64
	ReportedId int64
	RoomId     string
	Reason     string
}

// GameRecord is the summary of a finished game handed to the game log.
type GameRecord struct {
	RoomId       string
	RoundsPlayed int
	FinishedAt   time.Time
	Results      []PlayerResult
}

type PlayerResult struct {
	UserId int64
	Score  int
	Rank   int
}
