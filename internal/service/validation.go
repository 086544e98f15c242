package service

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

const (
	maxPlayerIDLength = 128
	maxCategoryLength = 64
	maxCategories     = 16
	maxFriendIDs      = 16
)

// normalizeRequest 요청 검증 후 큐에 들어갈 형태로 정규화.
// 카테고리는 소문자, 난이도는 대문자, 중복은 제거된다.
func normalizeRequest(req models.CreateMatchmakingRequest) (models.MatchRequest, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" || len(playerID) > maxPlayerIDLength {
		return models.MatchRequest{}, fmt.Errorf("%w: playerId must be 1-%d characters", ErrInvalidRequest, maxPlayerIDLength)
	}

	skill, ok := models.ParseSkillLevel(string(req.SkillLevel))
	if !ok {
		return models.MatchRequest{}, fmt.Errorf("%w: unknown skill level %q", ErrInvalidRequest, req.SkillLevel)
	}

	prefs := req.Preferences

	categories, err := normalizeCategories(prefs.Categories)
	if err != nil {
		return models.MatchRequest{}, err
	}

	difficulty := models.Difficulty(strings.ToUpper(strings.TrimSpace(string(prefs.Difficulty))))
	if !difficulty.Valid() {
		return models.MatchRequest{}, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, prefs.Difficulty)
	}

	friends, err := normalizeFriendIDs(playerID, prefs.FriendIDs)
	if err != nil {
		return models.MatchRequest{}, err
	}

	var maxWait *int
	if prefs.MaxWaitSeconds != nil {
		v := models.ClampMaxWaitSeconds(*prefs.MaxWaitSeconds)
		maxWait = &v
	}

	return models.MatchRequest{
		PlayerID:   playerID,
		SkillLevel: skill,
		Preferences: models.MatchmakingPreferences{
			Categories:     categories,
			Difficulty:     difficulty,
			FriendIDs:      friends,
			MaxWaitSeconds: maxWait,
		},
	}, nil
}

func normalizeCategories(raw []string) ([]string, error) {
	if len(raw) > maxCategories {
		return nil, fmt.Errorf("%w: at most %d categories", ErrInvalidRequest, maxCategories)
	}

	categories := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || len(c) > maxCategoryLength {
			return nil, fmt.Errorf("%w: category must be 1-%d characters", ErrInvalidRequest, maxCategoryLength)
		}
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return lo.Uniq(categories), nil
}

func normalizeFriendIDs(playerID string, raw []string) ([]string, error) {
	if len(raw) > maxFriendIDs {
		return nil, fmt.Errorf("%w: at most %d friendIds", ErrInvalidRequest, maxFriendIDs)
	}

	friends := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: friendIds must not contain empty ids", ErrInvalidRequest)
		}
		if id == playerID {
			return nil, fmt.Errorf("%w: friendIds must not contain the requesting player", ErrInvalidRequest)
		}
		friends = append(friends, id)
	}
	if len(friends) == 0 {
		return nil, nil
	}
	return lo.Uniq(friends), nil
}

// parseStatus 대소문자 구분 없이 세션 상태 파싱
func parseStatus(raw models.GameSessionStatus) (models.GameSessionStatus, error) {
	status := models.GameSessionStatus(strings.ToUpper(strings.TrimSpace(string(raw))))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}
