package match

import (
	"math"
	"sort"
	"strings"
)

type Result struct {
	MatchScore      float64  `json:"match_score"`
	MatchedSkills   []string `json:"matched_skills"`
	SkillGaps       []string `json:"skill_gaps"`
	Recommendations []string `json:"recommendations"`
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// MatchSkills scores how well a student's skills cover an internship's
// requirements. The score is the covered fraction of required skills,
// case-insensitive, rounded to two decimals.
func (s *Service) MatchSkills(studentSkills, internshipSkills []string) Result {
	student := toSet(studentSkills)
	required := toSet(internshipSkills)

	matched := make([]string, 0)
	gaps := make([]string, 0)
	for skill := range required {
		if student[skill] {
			matched = append(matched, skill)
		} else {
			gaps = append(gaps, skill)
		}
	}
	sort.Strings(matched)
	sort.Strings(gaps)

	var score float64
	if len(required) > 0 {
		score = math.Round(float64(len(matched))/float64(len(required))*100) / 100
	}

	recommendations := make([]string, 0)
	if len(gaps) > 0 {
		top := gaps
		if len(top) > 3 {
			top = top[:3]
		}
		recommendations = append(recommendations, "Consider learning: "+strings.Join(top, ", "))
	}
	switch {
	case score > 0.7:
		recommendations = append(recommendations, "Strong match! Apply with confidence.")
	case score > 0.5:
		recommendations = append(recommendations, "Good match. Highlight your transferable skills.")
	default:
		recommendations = append(recommendations, "Focus on building required skills first.")
	}

	return Result{
		MatchScore:      score,
		MatchedSkills:   matched,
		SkillGaps:       gaps,
		Recommendations: recommendations,
	}
}

func toSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}
