package storage

import (
	"context"
	"errors"
	"fmt"
	"wordchain/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func wrapDatabaseError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

func (pgr *PostgresRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user := domain.User{Username: username}

	row := pgr.pool.QueryRow(ctx, "SELECT id, password_hash FROM users WHERE username = $1", username)

	if err := row.Scan(&user.Id, &user.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, wrapDatabaseError(err)
	}

	return user, nil
}

func (pgr *PostgresRepo) GetUserById(ctx context.Context, id int64) (domain.User, error) {
	user := domain.User{Id: id}

	row := pgr.pool.QueryRow(ctx, "SELECT username, password_hash FROM users WHERE id = $1", id)

	if err := row.Scan(&user.Username, &user.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, wrapDatabaseError(err)
	}

	return user, nil
}

func (pgr *PostgresRepo) CreateUser(ctx context.Context, username string, passwordHash string) (int64, error) {
	row := pgr.pool.QueryRow(ctx, "INSERT INTO users(username, password_hash) VALUES($1, $2) RETURNING id", username, passwordHash)

	var id int64
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateUsername
		}
		return 0, wrapDatabaseError(err)
	}

	return id, nil
}

func (pgr *PostgresRepo) IsBanned(ctx context.Context, userId int64) (bool, error) {
	var banned bool
	err := pgr.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM bans WHERE user_id = $1)", userId).Scan(&banned)
	if err != nil {
		return false, wrapDatabaseError(err)
	}
	return banned, nil
}

// BanUser is idempotent; banning an already banned user keeps the first reason.
func (pgr *PostgresRepo) BanUser(ctx context.Context, userId int64, reason string) error {
	_, err := pgr.pool.Exec(ctx,
		"INSERT INTO bans(user_id, reason) VALUES($1, $2) ON CONFLICT (user_id) DO NOTHING",
		userId, reason)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.ErrUserNotFound
		}
		return wrapDatabaseError(err)
	}
	return nil
}

func (pgr *PostgresRepo) CreateReport(ctx context.Context, report domain.Report) error {
	_, err := pgr.pool.Exec(ctx,
		"INSERT INTO reports(reporter_id, reported_id, room_id, reason) VALUES($1, $2, $3, $4)",
		report.ReporterId, report.ReportedId, report.RoomId, report.Reason)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.ErrUserNotFound
		}
		return wrapDatabaseError(err)
	}
	return nil
}

// CountReports returns how many reports were filed against userId.
func (pgr *PostgresRepo) CountReports(ctx context.Context, userId int64) (int, error) {
	var n int
	err := pgr.pool.QueryRow(ctx, "SELECT count(*) FROM reports WHERE reported_id = $1", userId).Scan(&n)
	if err != nil {
		return 0, wrapDatabaseError(err)
	}
	return n, nil
}

// SaveGameResult stores a finished game and its per-player ranking in one transaction.
func (pgr *PostgresRepo) SaveGameResult(ctx context.Context, record domain.GameRecord) (int64, error) {
	var gameId int64

	err := pgx.BeginFunc(ctx, pgr.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			"INSERT INTO game_results(room_id, rounds_played, finished_at) VALUES($1, $2, $3) RETURNING id",
			record.RoomId, record.RoundsPlayed, record.FinishedAt)
		if err := row.Scan(&gameId); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, r := range record.Results {
			batch.Queue("INSERT INTO game_players(game_id, user_id, score, rank) VALUES($1, $2, $3, $4)",
				gameId, r.UserId, r.Score, r.Rank)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, wrapDatabaseError(err)
	}

	return gameId, nil
}

// GameResults returns the stored ranking of a game, best rank first.
func (pgr *PostgresRepo) GameResults(ctx context.Context, gameId int64) ([]domain.PlayerResult, error) {
	rows, err := pgr.pool.Query(ctx,
		"SELECT user_id, score, rank FROM game_players WHERE game_id = $1 ORDER BY rank, user_id", gameId)
	if err != nil {
		return nil, wrapDatabaseError(err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PlayerResult, error) {
		var r domain.PlayerResult
		err := row.Scan(&r.UserId, &r.Score, &r.Rank)
		return r, err
	})
	if err != nil {
		return nil, wrapDatabaseError(err)
	}
	return results, nil
}
