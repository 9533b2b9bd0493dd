package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recommendation categorical trading call
type Recommendation string

const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationHold  Recommendation = "HOLD"
	RecommendationAvoid Recommendation = "AVOID"
)

// Annotation fallbacks
const (
	AnnotationFailed       = "AI comment unavailable."
	AnnotationNotAvailable = "No AI comment available."
)

// Signal final output of one wallet evaluation
type Signal struct {
	Address        string         `json:"address"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"` // [0, 1]
	Reason         string         `json:"reason"`
	Annotation     string         `json:"annotation"`
	RiskScore      float64        `json:"riskScore"` // [0, 10]
}

// Analysis signal plus the observation and patterns it was built from
type Analysis struct {
	Observation WalletObservation `json:"observation"`
	Patterns    []Pattern         `json:"patterns"`
	Signal      Signal            `json:"signal"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// SignalRecord persisted signal history
type SignalRecord struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Address        string    `gorm:"type:varchar(64);not null;index" json:"address"`
	Recommendation string    `gorm:"type:varchar(10);not null;index" json:"recommendation"`
	Confidence     float64   `gorm:"not null" json:"confidence"`
	Reason         string    `gorm:"type:text" json:"reason"`
	Annotation     string    `gorm:"type:text" json:"annotation"`
	RiskScore      float64   `gorm:"not null" json:"riskScore"`
	Patterns       string    `gorm:"type:text" json:"patterns"` // comma-joined names
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

func (s *SignalRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (SignalRecord) TableName() string {
	return "signals"
}

// NewSignalRecord flattens an analysis for storage
func NewSignalRecord(a Analysis) *SignalRecord {
	return &SignalRecord{
		Address:        a.Signal.Address,
		Recommendation: string(a.Signal.Recommendation),
		Confidence:     a.Signal.Confidence,
		Reason:         a.Signal.Reason,
		Annotation:     a.Signal.Annotation,
		RiskScore:      a.Signal.RiskScore,
		Patterns:       strings.Join(PatternNames(a.Patterns), ","),
		CreatedAt:      a.GeneratedAt,
	}
}

// LogRecord persisted log line
type LogRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Level     string    `gorm:"type:varchar(10);index" json:"level"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (l *LogRecord) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

func (LogRecord) TableName() string {
	return "logs"
}

// PatternRecord persisted custom rule, conditions stored as JSON text
type PatternRecord struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey     string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"-"` // lower-cased name
	Description string    `gorm:"type:text" json:"description"`
	Conditions  string    `gorm:"type:text" json:"conditions"`
	Position    int64     `gorm:"not null;default:0;index" json:"position"` // insertion sequence
	CreatedAt   time.Time `json:"createdAt"`
}

func (p *PatternRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.NameKey = strings.ToLower(p.Name)
	return nil
}

func (PatternRecord) TableName() string {
	return "patterns"
}
