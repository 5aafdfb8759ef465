package session

import (
	"context"
	"wordchain/domain"
)

// Connection is one client's transport. Close may be called concurrently
// with Write and Ping.
type Connection interface {
	Close(code string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type BanRepo interface {
	IsBanned(ctx context.Context, userId int64) (bool, error)
	BanUser(ctx context.Context, userId int64, reason string) error
}

type ReportRepo interface {
	CreateReport(ctx context.Context, report domain.Report) error
	CountReports(ctx context.Context, userId int64) (int, error)
}

// GameLog receives the summary of every finished game.
type GameLog interface {
	SaveGameResult(ctx context.Context, record domain.GameRecord) (int64, error)
}

// BanNotifier propagates a ban to every server process.
type BanNotifier interface {
	PublishBan(ctx context.Context, userId int64) error
}
