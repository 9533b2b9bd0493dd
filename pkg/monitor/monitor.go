package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// unhealthyAfter consecutive failures before a component is unhealthy
const unhealthyAfter = 3

// HealthStatus last known state of one component
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"lastChecked"`
	Message     string    `json:"message,omitempty"`
	Failures    int       `json:"failures"`
}

// AlertFunc called when a component leaves the healthy state
type AlertFunc func(component, status, message string)

// Monitor component health registry
type Monitor struct {
	components map[string]*HealthStatus
	mutex      sync.RWMutex
	alertFunc  AlertFunc
	client     *http.Client
	logger     zerolog.Logger
}

func NewMonitor(alertFunc AlertFunc) *Monitor {
	return &Monitor{
		components: make(map[string]*HealthStatus),
		alertFunc:  alertFunc,
		client:     &http.Client{Timeout: 5 * time.Second},
		logger:     log.With().Str("component", "monitor").Logger(),
	}
}

// RegisterComponent adds a component in the unknown state
func (m *Monitor) RegisterComponent(component string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.components[component]; exists {
		return
	}
	m.components[component] = &HealthStatus{
		Component:   component,
		Status:      StatusUnknown,
		LastChecked: time.Now().UTC(),
	}
}

// UpdateStatus sets the state directly
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mutex.Lock()
	current, exists := m.components[component]
	if !exists {
		current = &HealthStatus{Component: component}
		m.components[component] = current
	}

	oldStatus := current.Status
	current.Status = status
	current.Message = message
	current.LastChecked = time.Now().UTC()
	if status == StatusHealthy {
		current.Failures = 0
	}
	m.mutex.Unlock()

	if oldStatus != status {
		m.logger.Info().Str("target", component).Str("from", oldStatus).Str("to", status).Msg("Health changed")
		if status != StatusHealthy && m.alertFunc != nil {
			m.alertFunc(component, status, message)
		}
	}
}

// RecordResult folds the outcome of a call into the component state.
// One failure degrades it; repeated failures make it unhealthy.
func (m *Monitor) RecordResult(component string, err error) {
	if err == nil {
		m.UpdateStatus(component, StatusHealthy, "")
		return
	}

	m.mutex.Lock()
	current, exists := m.components[component]
	if !exists {
		current = &HealthStatus{Component: component}
		m.components[component] = current
	}
	current.Failures++
	failures := current.Failures
	m.mutex.Unlock()

	status := StatusDegraded
	if failures >= unhealthyAfter {
		status = StatusUnhealthy
	}
	m.UpdateStatus(component, status, err.Error())
}

// GetStatus returns a copy, or nil for an unknown component
func (m *Monitor) GetStatus(component string) *HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, exists := m.components[component]; exists {
		cp := *status
		return &cp
	}
	return nil
}

// GetAllStatus sorted by component name
func (m *Monitor) GetAllStatus() []HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	statuses := make([]HealthStatus, 0, len(m.components))
	for _, status := range m.components {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Component < statuses[j].Component })
	return statuses
}

// Overall worst state across components; unknown components are ignored
func (m *Monitor) Overall() string {
	overall := StatusHealthy
	for _, s := range m.GetAllStatus() {
		switch s.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// Check runs a probe and records its result
func (m *Monitor) Check(ctx context.Context, component string, check CheckFunc) {
	m.RecordResult(component, check(ctx))
}

// HTTPCheck probe expecting a 2xx from url
func (m *Monitor) HTTPCheck(url string) CheckFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}

// StartChecking runs check every interval until ctx is done
func (m *Monitor) StartChecking(ctx context.Context, component string, interval time.Duration, check CheckFunc) {
	m.RegisterComponent(component)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, interval)
				m.Check(checkCtx, component, check)
				cancel()
			}
		}
	}()
}
