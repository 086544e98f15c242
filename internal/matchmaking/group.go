package matchmaking

import (
	"github.com/samber/lo"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

type GroupKind string

const (
	GroupFriends GroupKind = "friends"
	GroupSkill   GroupKind = "skill"
	GroupRelaxed GroupKind = "relaxed"
)

// Group 한 틱에서 확정된 세션 후보. Members 는 오래 기다린 순.
type Group struct {
	Kind    GroupKind
	Members []models.MatchRequest
}

func (g Group) PlayerIDs() []string {
	return lo.Map(g.Members, func(r models.MatchRequest, _ int) string {
		return r.PlayerID
	})
}

func (g Group) Size() int {
	return len(g.Members)
}

// unassigned assigned 에 없는 요청만 순서를 유지해서 반환
func unassigned(requests []models.MatchRequest, assigned map[string]bool) []models.MatchRequest {
	return lo.Filter(requests, func(r models.MatchRequest, _ int) bool {
		return !assigned[r.PlayerID]
	})
}
