package model

// Rule defaults used when configuration omits a key
const (
	DefaultWhaleTokenThreshold       = 20
	DefaultDormantAwakeningThreshold = 5
	DefaultPatternRiskWeight         = 1.5
	DefaultWhaleRiskBonus            = 2.5
	DefaultActivityRiskWeight        = 1.0
)

// RuleConfiguration thresholds and weights for one pipeline; read-only once built
type RuleConfiguration struct {
	WhaleTokenThreshold       int                      `json:"whaleTokenThreshold"`
	DormantAwakeningThreshold int                      `json:"dormantAwakeningThreshold"`
	ActivityRiskWeights       map[ActivityType]float64 `json:"activityRiskWeights"`
	PatternRiskWeight         float64                  `json:"patternRiskWeight"`
	WhaleRiskBonus            float64                  `json:"whaleRiskBonus"`
}

// DefaultRuleConfiguration the built-in rule set
func DefaultRuleConfiguration() RuleConfiguration {
	return RuleConfiguration{
		WhaleTokenThreshold:       DefaultWhaleTokenThreshold,
		DormantAwakeningThreshold: DefaultDormantAwakeningThreshold,
		ActivityRiskWeights:       map[ActivityType]float64{},
		PatternRiskWeight:         DefaultPatternRiskWeight,
		WhaleRiskBonus:            DefaultWhaleRiskBonus,
	}
}

// ActivityWeight risk weight of an activity bucket, 1.0 when unlisted
func (c RuleConfiguration) ActivityWeight(a ActivityType) float64 {
	if w, ok := c.ActivityRiskWeights[a]; ok {
		return w
	}
	return DefaultActivityRiskWeight
}

// Clone deep copy so holders never share the weight map
func (c RuleConfiguration) Clone() RuleConfiguration {
	out := c
	out.ActivityRiskWeights = make(map[ActivityType]float64, len(c.ActivityRiskWeights))
	for k, v := range c.ActivityRiskWeights {
		out.ActivityRiskWeights[k] = v
	}
	return out
}
