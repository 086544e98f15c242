package matchmaking

import (
	"fmt"
	"testing"
	"time"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEstimateWait(t *testing.T) {
	tests := []struct {
		name    string
		similar int
		want    int
	}{
		{"empty queue", 0, 60},
		{"one similar", 1, 45},
		{"two similar", 2, 30},
		{"three similar", 3, 15},
		{"floor", 10, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest("me", models.SkillIntermediate, 0)
			snapshot := []models.MatchRequest{req}
			for i := 0; i < tt.similar; i++ {
				snapshot = append(snapshot, newRequest(fmt.Sprintf("p%d", i), models.SkillAdvanced, time.Second))
			}
			// 거리 2 이상은 세지 않는다
			snapshot = append(snapshot, newRequest("far", models.SkillExpert, time.Second))

			assert.Equal(t, tt.want, EstimateWait(req, snapshot, DefaultMaxSkillDifference))
		})
	}
}

func TestEstimateWait_AlwaysWithinBounds(t *testing.T) {
	var snapshot []models.MatchRequest
	for i := 0; i < 12; i++ {
		snapshot = append(snapshot, newRequest(fmt.Sprintf("p%d", i), models.SkillLevels[i%4], 0))
		for _, r := range snapshot {
			got := EstimateWait(r, snapshot, DefaultMaxSkillDifference)
			assert.GreaterOrEqual(t, got, 15)
			assert.LessOrEqual(t, got, 60)
		}
	}
}

func TestAverageWait(t *testing.T) {
	assert.Equal(t, 0.0, AverageWait(nil, baseTime))

	snapshot := []models.MatchRequest{
		newRequest("a", models.SkillBeginner, 0),
		newRequest("b", models.SkillBeginner, 10*time.Second),
	}
	assert.InDelta(t, 25.0, AverageWait(snapshot, baseTime.Add(30*time.Second)), 0.001)
}
