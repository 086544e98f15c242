package matchmaking

import (
	"sort"

	"github.com/samber/lo"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

// ResolveFriendGroups 친구 지정 요청으로 그룹을 만든다.
//
// snapshot 은 requestedAt 오름차순이어야 한다. 요청 r 의 friendIds 중 큐에 있고
// 이번 틱에 아직 배정되지 않은 플레이어가 r 의 친구 집합이다 (단방향).
// 그룹은 {r} ∪ 친구 중 오래된 순서로 PlayersPerSession 명까지다. 정원을 넘으면
// r 자신도 빠질 수 있다. r 과 카테고리/난이도가 충돌하는 친구는 건너뛰고 다음
// 단계로 남긴다. 먼저 본 요청이 우선한다.
//
// 모든 친구 그룹이 정해진 뒤, 정원이 남는 그룹은 모든 멤버와 스킬 호환되는
// 나머지 요청으로 오래된 순서대로 채운다.
func ResolveFriendGroups(snapshot []models.MatchRequest, p Policy) ([]Group, []models.MatchRequest) {
	position := make(map[string]int, len(snapshot))
	for i, r := range snapshot {
		position[r.PlayerID] = i
	}

	assigned := make(map[string]bool)
	var groups []Group
	var constraints []groupConstraint

	for _, anchor := range snapshot {
		if assigned[anchor.PlayerID] || len(anchor.Preferences.FriendIDs) == 0 {
			continue
		}

		friendIDs := lo.Filter(lo.Uniq(anchor.Preferences.FriendIDs), func(id string, _ int) bool {
			_, queued := position[id]
			return queued && id != anchor.PlayerID && !assigned[id]
		})
		if len(friendIDs) == 0 {
			continue
		}

		// 앵커와 친구 중 오래된 순서로 PlayersPerSession 명. 앵커가 밀려날 수도 있다.
		candidates := append([]string{anchor.PlayerID}, friendIDs...)
		sort.Slice(candidates, func(i, j int) bool {
			return position[candidates[i]] < position[candidates[j]]
		})

		cons, _ := groupConstraint{}.admit(anchor)
		members := make([]models.MatchRequest, 0, p.PlayersPerSession)
		for _, id := range candidates {
			if len(members) == p.PlayersPerSession {
				break
			}
			r := snapshot[position[id]]
			if id != anchor.PlayerID {
				next, ok := cons.admit(r)
				if !ok {
					continue
				}
				cons = next
			}
			members = append(members, r)
		}
		cons = constraintOf(members)

		if len(members) < p.MinGroupSize {
			continue
		}

		for _, m := range members {
			assigned[m.PlayerID] = true
		}
		groups = append(groups, Group{Kind: GroupFriends, Members: members})
		constraints = append(constraints, cons)
	}

	for i := range groups {
		groups[i].Members, constraints[i] = topUp(groups[i].Members, constraints[i], snapshot, assigned, p)
		sortOldestFirst(groups[i].Members, position)
	}

	return groups, unassigned(snapshot, assigned)
}

func topUp(
	members []models.MatchRequest,
	cons groupConstraint,
	snapshot []models.MatchRequest,
	assigned map[string]bool,
	p Policy,
) ([]models.MatchRequest, groupConstraint) {
	for _, candidate := range snapshot {
		if len(members) >= p.PlayersPerSession {
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
		assigned[candidate.PlayerID] = true
	}
	return members, cons
}

func sortOldestFirst(members []models.MatchRequest, position map[string]int) {
	sort.SliceStable(members, func(i, j int) bool {
		return position[members[i].PlayerID] < position[members[j].PlayerID]
	})
}

// constraintOf 이미 서로 호환되는 멤버들의 공통 제약
func constraintOf(members []models.MatchRequest) groupConstraint {
	var cons groupConstraint
	for _, m := range members {
		cons, _ = cons.admit(m)
	}
	return cons
}
