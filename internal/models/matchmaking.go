package models

import "time"

const (
	// DefaultMaxWaitSeconds 선호도에 maxWaitSeconds가 없을 때의 기본 대기 한도
	DefaultMaxWaitSeconds = 300
	MinMaxWaitSeconds     = 30
	MaxMaxWaitSeconds     = 600
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid 빈 값(와일드카드)도 유효한 것으로 본다
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// MatchmakingPreferences 매칭 선호도. 제출 후에는 변경되지 않는다.
// 빈 Categories / Difficulty 는 "아무거나"를 의미한다.
type MatchmakingPreferences struct {
	Categories     []string   `json:"categories,omitempty"`
	Difficulty     Difficulty `json:"difficulty,omitempty"`
	FriendIDs      []string   `json:"friendIds,omitempty"`
	MaxWaitSeconds *int       `json:"maxWaitSeconds,omitempty"`
}

// MaxWait 기본값과 [30,600] 범위 보정을 적용한 최대 대기 시간
func (p MatchmakingPreferences) MaxWait() time.Duration {
	seconds := DefaultMaxWaitSeconds
	if p.MaxWaitSeconds != nil {
		seconds = ClampMaxWaitSeconds(*p.MaxWaitSeconds)
	}
	return time.Duration(seconds) * time.Second
}

func ClampMaxWaitSeconds(seconds int) int {
	if seconds < MinMaxWaitSeconds {
		return MinMaxWaitSeconds
	}
	if seconds > MaxMaxWaitSeconds {
		return MaxMaxWaitSeconds
	}
	return seconds
}

// MatchRequest 큐에 대기 중인 매칭 요청
type MatchRequest struct {
	PlayerID    string                 `json:"playerId"`
	SkillLevel  SkillLevel             `json:"skillLevel"`
	Preferences MatchmakingPreferences `json:"preferences"`
	RequestedAt time.Time              `json:"requestedAt"`
}

// Relaxed now 시점에 최대 대기 시간을 넘겼는지 여부.
// 저장된 플래그가 아니라 매 틱마다 새로 계산한다.
func (r MatchRequest) Relaxed(now time.Time) bool {
	return now.Sub(r.RequestedAt) >= r.Preferences.MaxWait()
}

// CreateMatchmakingRequest POST /matchmaking/request 요청 바디
type CreateMatchmakingRequest struct {
	PlayerID    string                 `json:"playerId" binding:"required"`
	SkillLevel  SkillLevel             `json:"skillLevel" binding:"required"`
	Preferences MatchmakingPreferences `json:"preferences"`
}

// MatchmakingResponse POST /matchmaking/request 응답
type MatchmakingResponse struct {
	Success           bool         `json:"success"`
	Message           string       `json:"message"`
	EstimatedWaitTime *int         `json:"estimatedWaitTime,omitempty"`
	GameSession       *GameSession `json:"gameSession,omitempty"`
}

// QueueStatus GET /matchmaking/status 응답
type QueueStatus struct {
	QueueLength       int                `json:"queueLength"`
	QueueBySkillLevel map[SkillLevel]int `json:"queueBySkillLevel"`
	AverageWaitTime   float64            `json:"averageWaitTime"`
}

// QueueEntry 특정 플레이어의 대기 상태
type QueueEntry struct {
	Request           MatchRequest `json:"request"`
	Position          int          `json:"position"` // 1부터 시작
	WaitedSeconds     float64      `json:"waitedSeconds"`
	EstimatedWaitTime int          `json:"estimatedWaitTime"`
	Relaxed           bool         `json:"relaxed"`
}
