package matchmaking

import (
	"time"

	"github.com/samber/lo"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

// ReapTimeouts 최대 대기 시간을 넘긴 요청끼리 제약 없이 묶는다.
// 가장 오래 기다린 요청부터 min(PlayersPerSession, 남은 수) 크기로 묶고,
// MinGroupSize 미만이 남으면 다음 틱까지 그대로 둔다.
func ReapTimeouts(remaining []models.MatchRequest, now time.Time, p Policy) ([]Group, []models.MatchRequest) {
	eligible := lo.Filter(remaining, func(r models.MatchRequest, _ int) bool {
		return r.Relaxed(now)
	})

	assigned := make(map[string]bool)
	var groups []Group

	for len(eligible) >= p.MinGroupSize {
		size := min(p.PlayersPerSession, len(eligible))
		members := eligible[:size:size]
		for _, m := range members {
			assigned[m.PlayerID] = true
		}
		groups = append(groups, Group{Kind: GroupRelaxed, Members: members})
		eligible = eligible[size:]
	}

	return groups, unassigned(remaining, assigned)
}
