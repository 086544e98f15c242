package matchmaking

import (
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

// MatchBySkill 친구 그룹에 들어가지 않은 요청을 스킬 호환 그룹으로 묶는다.
//
// 오래된 요청부터 앵커로 삼고, 앵커를 포함한 모든 멤버와 스킬 차이가
// MaxSkillDifference 이하이며 카테고리/난이도가 충돌하지 않는 요청을 오래된
// 순서로 모은다. 정확히 PlayersPerSession 명이 모여야만 확정한다.
// 부분 그룹은 만들지 않는다 (타임아웃 단계 몫).
//
// 대기열 크기에 대해 O(n^2).
func MatchBySkill(residual []models.MatchRequest, p Policy) ([]Group, []models.MatchRequest) {
	assigned := make(map[string]bool)
	var groups []Group

	for i, anchor := range residual {
		if assigned[anchor.PlayerID] {
			continue
		}

		cons, _ := groupConstraint{}.admit(anchor)
		members := []models.MatchRequest{anchor}

		for _, candidate := range residual[i+1:] {
			if len(members) == p.PlayersPerSession {
				break
			}
			if assigned[candidate.PlayerID] || !p.skillCompatibleWithAll(members, candidate) {
				continue
			}
			next, ok := cons.admit(candidate)
			if !ok {
				continue
			}
			cons = next
			members = append(members, candidate)
		}

		if len(members) != p.PlayersPerSession {
			continue
		}

		for _, m := range members {
			assigned[m.PlayerID] = true
		}
		groups = append(groups, Group{Kind: GroupSkill, Members: members})
	}

	return groups, unassigned(residual, assigned)
}
