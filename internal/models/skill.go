package models

import "strings"

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
	SkillExpert       SkillLevel = "EXPERT"
)

// SkillLevels 서열 순서의 전체 스킬 레벨
var SkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert}

// Ordinal BEGINNER..EXPERT 를 1..4 로 매핑. 알 수 없는 값은 0.
func (s SkillLevel) Ordinal() int {
	switch s {
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2
	case SkillAdvanced:
		return 3
	case SkillExpert:
		return 4
	}
	return 0
}

func (s SkillLevel) Valid() bool {
	return s.Ordinal() > 0
}

// ParseSkillLevel 대소문자 구분 없이 스킬 태그 파싱
func ParseSkillLevel(raw string) (SkillLevel, bool) {
	s := SkillLevel(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// SkillDistance |ordinal(a) - ordinal(b)|
func SkillDistance(a, b SkillLevel) int {
	d := a.Ordinal() - b.Ordinal()
	if d < 0 {
		return -d
	}
	return d
}
