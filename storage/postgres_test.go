package storage_test

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"
	"wordchain/domain"
	"wordchain/migrations"
	"wordchain/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var repo *storage.PostgresRepo

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	repo, err = storage.NewPostgresRepo(ctx, connString)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	repo.Close()
	_ = postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func requireRepo(t *testing.T) {
	t.Helper()
	if repo == nil {
		t.Skip("postgres container disabled in short mode")
	}
}

func TestPostgresRepo_Users(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()

	t.Run("CreateUser", func(t *testing.T) {
		id, err := repo.CreateUser(ctx, "oussama", "hashed_secret")
		assert.NoError(t, err)
		assert.Positive(t, id)
	})

	t.Run("CreateUser_Duplicate", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, "oussama", "new_hash")
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("GetUserByUsername", func(t *testing.T) {
		user, err := repo.GetUserByUsername(ctx, "oussama")
		assert.NoError(t, err)
		assert.Equal(t, "oussama", user.Username)
		assert.Equal(t, "hashed_secret", user.PasswordHash)
		assert.Positive(t, user.Id)
	})

	t.Run("GetUserByUsername_NotFound", func(t *testing.T) {
		_, err := repo.GetUserByUsername(ctx, "ghost_user")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("GetUserById", func(t *testing.T) {
		id, err := repo.CreateUser(ctx, "tester2", "hash2")
		require.NoError(t, err)

		user, err := repo.GetUserById(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, "hash2", user.PasswordHash)
		assert.Equal(t, "tester2", user.Username)
	})

	t.Run("GetUserById_NotFound", func(t *testing.T) {
		_, err := repo.GetUserById(ctx, 987654)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.GetUserByUsername(canceled, "oussama")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPostgresRepo_BansAndReports(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()

	reporter, err := repo.CreateUser(ctx, "reporter", "h")
	require.NoError(t, err)
	troll, err := repo.CreateUser(ctx, "troll", "h")
	require.NoError(t, err)

	banned, err := repo.IsBanned(ctx, troll)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, repo.CreateReport(ctx, domain.Report{ReporterId: reporter, ReportedId: troll, RoomId: "r1", Reason: "spam"}))
	require.NoError(t, repo.CreateReport(ctx, domain.Report{ReporterId: reporter, ReportedId: troll, RoomId: "r1", Reason: "again"}))

	n, err := repo.CountReports(ctx, troll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = repo.CreateReport(ctx, domain.Report{ReporterId: reporter, ReportedId: 999999})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.BanUser(ctx, troll, "spam"))
	require.NoError(t, repo.BanUser(ctx, troll, "twice"))

	banned, err = repo.IsBanned(ctx, troll)
	require.NoError(t, err)
	assert.True(t, banned)

	var reason string
	require.NoError(t, repo.GetPool().QueryRow(ctx, "SELECT reason FROM bans WHERE user_id = $1", troll).Scan(&reason))
	assert.Equal(t, "spam", reason)

	assert.ErrorIs(t, repo.BanUser(ctx, 999999, "x"), domain.ErrUserNotFound)
}

func TestPostgresRepo_SaveGameResult(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()

	record := domain.GameRecord{
		RoomId:       "room-1",
		RoundsPlayed: 3,
		FinishedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: []domain.PlayerResult{
			{UserId: 10, Score: 120, Rank: 1},
			{UserId: 11, Score: 40, Rank: 2},
			{UserId: 12, Score: 0, Rank: 3},
		},
	}

	gameId, err := repo.SaveGameResult(ctx, record)
	require.NoError(t, err)
	assert.Positive(t, gameId)

	results, err := repo.GameResults(ctx, gameId)
	require.NoError(t, err)
	assert.Equal(t, record.Results, results)

	var rounds int
	require.NoError(t, repo.GetPool().QueryRow(ctx, "SELECT rounds_played FROM game_results WHERE id = $1", gameId).Scan(&rounds))
	assert.Equal(t, 3, rounds)
}
