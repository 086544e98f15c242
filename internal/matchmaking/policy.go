package matchmaking

import (
	"fmt"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

const (
	DefaultPlayersPerSession  = 4
	DefaultMinGroupSize       = 2
	DefaultMaxSkillDifference = 1
)

// Policy 매칭 그룹 크기 및 스킬 허용 범위
type Policy struct {
	PlayersPerSession  int
	MinGroupSize       int
	MaxSkillDifference int
}

func DefaultPolicy() Policy {
	return Policy{
		PlayersPerSession:  DefaultPlayersPerSession,
		MinGroupSize:       DefaultMinGroupSize,
		MaxSkillDifference: DefaultMaxSkillDifference,
	}
}

// Validate 설정 오류 검사
func (p Policy) Validate() error {
	if p.MinGroupSize < 2 {
		return fmt.Errorf("min group size must be at least 2, got %d", p.MinGroupSize)
	}
	if p.PlayersPerSession < p.MinGroupSize {
		return fmt.Errorf("players per session (%d) must be >= min group size (%d)", p.PlayersPerSession, p.MinGroupSize)
	}
	if p.MaxSkillDifference < 0 {
		return fmt.Errorf("max skill difference must not be negative, got %d", p.MaxSkillDifference)
	}
	return nil
}

// SkillCompatible 두 요청의 스킬 서열 차이가 허용 범위 이내인지
func (p Policy) SkillCompatible(a, b models.MatchRequest) bool {
	return models.SkillDistance(a.SkillLevel, b.SkillLevel) <= p.MaxSkillDifference
}

// skillCompatibleWithAll candidate 가 그룹의 모든 멤버와 스킬 호환되는지
func (p Policy) skillCompatibleWithAll(members []models.MatchRequest, candidate models.MatchRequest) bool {
	for _, m := range members {
		if !p.SkillCompatible(m, candidate) {
			return false
		}
	}
	return true
}

// groupConstraint 그룹 전체가 공유하는 카테고리/난이도 제약.
// categories 가 nil 이면 아직 와일드카드.
type groupConstraint struct {
	categories map[string]struct{}
	difficulty models.Difficulty
}

// admit r 을 추가했을 때의 제약을 반환. 충돌하면 false.
func (g groupConstraint) admit(r models.MatchRequest) (groupConstraint, bool) {
	next := groupConstraint{categories: g.categories, difficulty: g.difficulty}

	if d := r.Preferences.Difficulty; d != "" {
		if g.difficulty != "" && g.difficulty != d {
			return g, false
		}
		next.difficulty = d
	}

	if len(r.Preferences.Categories) > 0 {
		narrowed := make(map[string]struct{}, len(r.Preferences.Categories))
		for _, c := range r.Preferences.Categories {
			if g.categories == nil {
				narrowed[c] = struct{}{}
				continue
			}
			if _, ok := g.categories[c]; ok {
				narrowed[c] = struct{}{}
			}
		}
		if len(narrowed) == 0 {
			return g, false
		}
		next.categories = narrowed
	}

	return next, true
}

// PreferencesCompatible 모든 요청이 카테고리/난이도에서 충돌하지 않는지
func PreferencesCompatible(requests ...models.MatchRequest) bool {
	var g groupConstraint
	for _, r := range requests {
		var ok bool
		if g, ok = g.admit(r); !ok {
			return false
		}
	}
	return true
}
