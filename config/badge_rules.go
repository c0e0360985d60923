package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed badge_rules.yaml
var defaultBadgeRules []byte

// BadgeRule is the set of thresholds a tailor must meet to earn a badge
type BadgeRule struct {
	Type                   string  `yaml:"type"`
	Name                   string  `yaml:"name"`
	MinAverageRating       float64 `yaml:"min_average_rating"`
	MinCompletedOrders     int     `yaml:"min_completed_orders"`
	MinCompletionRate      float64 `yaml:"min_completion_rate"`
	MaxResponseHours       float64 `yaml:"max_response_hours"`
	MinReviews             int     `yaml:"min_reviews"`
	MinReviewRating        float64 `yaml:"min_review_rating"`
	MinQualityRating       float64 `yaml:"min_quality_rating"`
	MinCommunicationRating float64 `yaml:"min_communication_rating"`
	MinTimelinessRating    float64 `yaml:"min_timeliness_rating"`
}

type badgeRulesFile struct {
	Badges []BadgeRule `yaml:"badges"`
}

// LoadBadgeRules reads badge rules from path, or the built-in rules when path is empty
func LoadBadgeRules(path string) ([]BadgeRule, error) {
	content := defaultBadgeRules
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read badge rules: %w", err)
		}
		content = data
	}
	return ParseBadgeRules(content)
}

// ParseBadgeRules decodes and validates a badge rules document
func ParseBadgeRules(content []byte) ([]BadgeRule, error) {
	var file badgeRulesFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse badge rules: %w", err)
	}

	seen := make(map[string]bool, len(file.Badges))
	for i, rule := range file.Badges {
		if rule.Type == "" {
			return nil, fmt.Errorf("badge rule %d has no type", i)
		}
		if seen[rule.Type] {
			return nil, fmt.Errorf("badge type %q is defined twice", rule.Type)
		}
		seen[rule.Type] = true
	}

	return file.Badges, nil
}
