package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 모든 구현이 같은 계약을 지키는지 확인
func storeImplementations(t *testing.T) map[string]GameSessionStore {
	t.Helper()

	stores := map[string]GameSessionStore{
		"memory": NewMemoryGameSessionRepository(),
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	stores["redis"] = NewRedisGameSessionRepository(client, "test:")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		db, err := database.Connect(url)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		repo := NewGameSessionRepository(db)
		require.NoError(t, repo.Migrate(context.Background()))
		stores["postgres"] = repo
	}

	return stores
}

func TestGameSessionStore_CreateAndGet(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			players := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}

			created, err := store.CreateSession(ctx, players, "pop", models.DifficultyHard)
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, players, created.Players)
			assert.Equal(t, "pop", created.Category)
			assert.Equal(t, models.DifficultyHard, created.Difficulty)
			assert.Equal(t, models.GameSessionPending, created.Status)
			assert.False(t, created.CreatedAt.IsZero())

			got, err := store.GetSession(ctx, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, players, got.Players)
			assert.True(t, got.HasPlayer(players[1]))
		})
	}
}

func TestGameSessionStore_GetMissing(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.GetSession(context.Background(), uuid.NewString())
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestGameSessionStore_SessionsByPlayerNewestFirst(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			me := uuid.NewString()

			first, err := store.CreateSession(ctx, []string{me, uuid.NewString()}, "pop", models.DifficultyEasy)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
			second, err := store.CreateSession(ctx, []string{uuid.NewString(), me}, "rock", models.DifficultyEasy)
			require.NoError(t, err)
			_, err = store.CreateSession(ctx, []string{uuid.NewString(), uuid.NewString()}, "jazz", models.DifficultyEasy)
			require.NoError(t, err)

			sessions, err := store.GetSessionsByPlayer(ctx, me)
			require.NoError(t, err)
			require.Len(t, sessions, 2)
			assert.Equal(t, second.ID, sessions[0].ID)
			assert.Equal(t, first.ID, sessions[1].ID)

			none, err := store.GetSessionsByPlayer(ctx, uuid.NewString())
			require.NoError(t, err)
			assert.NotNil(t, none)
			assert.Empty(t, none)
		})
	}
}

func TestGameSessionStore_UpdateStatus(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := store.CreateSession(ctx, []string{uuid.NewString(), uuid.NewString()}, "pop", models.DifficultyMedium)
			require.NoError(t, err)

			updated, err := store.UpdateStatus(ctx, created.ID, models.GameSessionActive)
			require.NoError(t, err)
			assert.Equal(t, models.GameSessionActive, updated.Status)

			got, err := store.GetSession(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, models.GameSessionActive, got.Status)

			_, err = store.UpdateStatus(ctx, uuid.NewString(), models.GameSessionCompleted)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestMemoryGameSessionRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryGameSessionRepository()
	ctx := context.Background()

	players := []string{"a", "b"}
	created, err := repo.CreateSession(ctx, players, "pop", models.DifficultyEasy)
	require.NoError(t, err)

	players[0] = "mutated"
	created.Players[1] = "mutated"

	got, err := repo.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Players)
}

func TestRedisGameSessionRepository_ConcurrentStatusUpdates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	repo := NewRedisGameSessionRepository(client, "test:")
	ctx := context.Background()

	created, err := repo.CreateSession(ctx, []string{"a", "b"}, "pop", models.DifficultyEasy)
	require.NoError(t, err)

	statuses := []models.GameSessionStatus{models.GameSessionActive, models.GameSessionCompleted, models.GameSessionCanceled}
	var wg sync.WaitGroup
	for _, s := range statuses {
		wg.Add(1)
		go func(s models.GameSessionStatus) {
			defer wg.Done()
			_, err := repo.UpdateStatus(ctx, created.ID, s)
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()

	got, err := repo.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Contains(t, statuses, got.Status)
	assert.Equal(t, []string{"a", "b"}, got.Players)

	// 락 키가 남아있지 않아야 한다
	assert.False(t, mr.Exists("test:lock:session:"+created.ID))
}
