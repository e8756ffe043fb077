package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shipment-tracker/internal/core/logger"

	"go.uber.org/zap"
)

// session is one shipment's tracking lifecycle record.
type session struct {
	shipmentID string
	active     bool
	startedAt  time.Time
	stoppedAt  time.Time
}

// SessionManager keeps per-shipment tracking sessions in memory. It backs
// the choreography's Initialize call on shipment creation and the
// cancellation flow's Stop/Resume pair.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates an empty session registry.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*session)}
}

// Initialize opens a tracking session for the shipment. Idempotent: an
// already-open session is left untouched.
func (s *SessionManager) Initialize(_ context.Context, shipmentID string) error {
	if shipmentID == "" {
		return fmt.Errorf("shipment id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[shipmentID]; ok && existing.active {
		return nil
	}
	s.sessions[shipmentID] = &session{
		shipmentID: shipmentID,
		active:     true,
		startedAt:  time.Now().UTC(),
	}

	logger.Get().Info("Tracking session initialized", zap.String("shipment_id", shipmentID))
	return nil
}

// Stop closes the shipment's tracking session. Stopping an unknown or
// already-stopped session is a no-op so the cancellation flow stays
// idempotent.
func (s *SessionManager) Stop(_ context.Context, shipmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[shipmentID]
	if !ok || !sess.active {
		return nil
	}
	sess.active = false
	sess.stoppedAt = time.Now().UTC()

	logger.Get().Info("Tracking session stopped", zap.String("shipment_id", shipmentID))
	return nil
}

// Resume reopens a previously stopped session. Used by the cancellation
// flow's compensation path.
func (s *SessionManager) Resume(_ context.Context, shipmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[shipmentID]
	if !ok {
		sess = &session{shipmentID: shipmentID, startedAt: time.Now().UTC()}
		s.sessions[shipmentID] = sess
	}
	sess.active = true
	sess.stoppedAt = time.Time{}

	logger.Get().Info("Tracking session resumed", zap.String("shipment_id", shipmentID))
	return nil
}

// IsActive reports whether the shipment has an open tracking session.
func (s *SessionManager) IsActive(shipmentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[shipmentID]
	return ok && sess.active
}
