package matchmaking

import (
	"context"
	"fmt"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

// SessionCreator 게임 세션 저장소 중 세션 생성 부분
type SessionCreator interface {
	CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error)
}

// SessionFactory 확정된 그룹으로 PENDING 세션을 만든다.
// 그룹 크기/중복 검증은 호출자(Scheduler) 책임이다.
type SessionFactory struct {
	store             SessionCreator
	defaultCategory   string
	defaultDifficulty models.Difficulty
}

func NewSessionFactory(store SessionCreator, defaultCategory string, defaultDifficulty models.Difficulty) *SessionFactory {
	return &SessionFactory{
		store:             store,
		defaultCategory:   defaultCategory,
		defaultDifficulty: defaultDifficulty,
	}
}

// Commit group 은 오래된 순서여야 한다 (동률 처리 기준)
func (f *SessionFactory) Commit(ctx context.Context, group []models.MatchRequest) (*models.GameSession, error) {
	players := make([]string, len(group))
	for i, r := range group {
		players[i] = r.PlayerID
	}

	category := ChooseCategory(group, f.defaultCategory)
	difficulty := ChooseDifficulty(group, f.defaultDifficulty)

	session, err := f.store.CreateSession(ctx, players, category, difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitFailure, err)
	}
	return session, nil
}

// ChooseCategory 가장 많이 선택된 카테고리.
// 동률이면 가장 오래된 요청의 선호 목록에서 먼저 나오는 것, 전부 와일드카드면 fallback.
func ChooseCategory(group []models.MatchRequest, fallback string) string {
	prefs := make([][]string, len(group))
	for i, r := range group {
		prefs[i] = r.Preferences.Categories
	}
	if v, ok := mostCommon(prefs); ok {
		return v
	}
	return fallback
}

// ChooseDifficulty ChooseCategory 와 같은 규칙
func ChooseDifficulty(group []models.MatchRequest, fallback models.Difficulty) models.Difficulty {
	prefs := make([][]models.Difficulty, len(group))
	for i, r := range group {
		if r.Preferences.Difficulty != "" {
			prefs[i] = []models.Difficulty{r.Preferences.Difficulty}
		}
	}
	if v, ok := mostCommon(prefs); ok {
		return v
	}
	return fallback
}

func mostCommon[T comparable](prefs [][]T) (T, bool) {
	counts := make(map[T]int)
	best := 0
	for _, values := range prefs {
		for _, v := range values {
			counts[v]++
			best = max(best, counts[v])
		}
	}

	// prefs 는 오래된 순서이므로 처음 만나는 최다 득표 값이 동률 승자
	for _, values := range prefs {
		for _, v := range values {
			if counts[v] == best {
				return v, true
			}
		}
	}

	var zero T
	return zero, false
}
