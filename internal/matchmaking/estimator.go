package matchmaking

import (
	"time"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

const (
	baseWaitSeconds     = 60
	minWaitSeconds      = 15
	perSimilarReduction = 15
	maxWaitReduction    = 45
)

// EstimateWait 예상 대기 시간(초).
// 비슷한 스킬의 다른 대기자 한 명당 15초씩, 최대 45초까지 줄어든다.
func EstimateWait(req models.MatchRequest, snapshot []models.MatchRequest, maxSkillDifference int) int {
	similar := 0
	for _, other := range snapshot {
		if other.PlayerID == req.PlayerID {
			continue
		}
		if models.SkillDistance(req.SkillLevel, other.SkillLevel) <= maxSkillDifference {
			similar++
		}
	}

	reduction := min(maxWaitReduction, similar*perSimilarReduction)
	return max(minWaitSeconds, baseWaitSeconds-reduction)
}

// AverageWait 현재 대기자들의 평균 대기 시간(초). 빈 큐는 0.
func AverageWait(snapshot []models.MatchRequest, now time.Time) float64 {
	if len(snapshot) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range snapshot {
		total += now.Sub(r.RequestedAt)
	}
	return total.Seconds() / float64(len(snapshot))
}
