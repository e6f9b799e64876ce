package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fleet-admin/internal/model"
	"fleet-admin/internal/repository"
)

// StateService is the server side of the state contract: it reads, normalizes
// and persists the single snapshot document.
type StateService struct {
	repo repository.StateRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewStateService(repo repository.StateRepository, log zerolog.Logger) *StateService {
	return &StateService{repo: repo, log: log, now: time.Now}
}

func (s *StateService) Initialize(ctx context.Context) error {
	defaults, err := encodeSnapshot(Normalize(model.DefaultSnapshot()))
	if err != nil {
		return err
	}
	if err := s.repo.Initialize(ctx, defaults); err != nil {
		return fmt.Errorf("initialize state storage: %w", err)
	}
	return nil
}

// GetState returns the stored snapshot. A missing or unreadable document is
// replaced with defaults; storage errors are returned as is.
func (s *StateService) GetState(ctx context.Context) (model.Snapshot, error) {
	data, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			s.log.Warn().Msg("no persisted state found, resetting to defaults")
			return s.reset(ctx)
		}
		return model.Snapshot{}, err
	}

	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("unable to read persisted state, resetting to defaults")
		return s.reset(ctx)
	}
	return snapshot, nil
}

// SaveState normalizes a raw JSON payload, stores it and returns what was
// stored. Anything but a JSON object is rejected with ErrInvalidInput.
func (s *StateService) SaveState(ctx context.Context, payload []byte) (model.Snapshot, error) {
	snapshot, err := DecodeSnapshot(payload)
	if err != nil {
		return model.Snapshot{}, err
	}
	return s.SaveSnapshot(ctx, snapshot)
}

func (s *StateService) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) (model.Snapshot, error) {
	normalized := Normalize(snapshot)
	data, err := encodeSnapshot(normalized)
	if err != nil {
		return model.Snapshot{}, err
	}
	if err := s.repo.Store(ctx, data); err != nil {
		return model.Snapshot{}, fmt.Errorf("persist state: %w", err)
	}
	return normalized, nil
}

// Reconcile runs the financial automation sweep over the stored state and
// writes it back when anything changed.
func (s *StateService) Reconcile(ctx context.Context) (SweepResult, error) {
	snapshot, err := s.GetState(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	result := Sweep(&snapshot, s.now())
	if !result.Changed() {
		return result, nil
	}
	if _, err := s.SaveSnapshot(ctx, snapshot); err != nil {
		return SweepResult{}, err
	}
	s.log.Info().
		Int("invoices", result.InvoicesChanged).
		Int("supplier_payments", result.PaymentsChanged).
		Msg("reconciled completed trips")
	return result, nil
}

func (s *StateService) Dashboard(ctx context.Context, filter *model.DashboardFilter) (model.DashboardMetrics, error) {
	snapshot, err := s.GetState(ctx)
	if err != nil {
		return model.DashboardMetrics{}, err
	}
	f := snapshot.DashboardFilter
	if filter != nil {
		f = *filter
	}
	return Aggregate(snapshot, f, s.now()), nil
}

func (s *StateService) Resolver(ctx context.Context) (Resolver, error) {
	snapshot, err := s.GetState(ctx)
	if err != nil {
		return Resolver{}, err
	}
	return NewResolver(snapshot), nil
}

func (s *StateService) reset(ctx context.Context) (model.Snapshot, error) {
	defaults := Normalize(model.DefaultSnapshot())
	data, err := encodeSnapshot(defaults)
	if err != nil {
		return model.Snapshot{}, err
	}
	if err := s.repo.Store(ctx, data); err != nil {
		return model.Snapshot{}, fmt.Errorf("reset state: %w", err)
	}
	return defaults, nil
}

func encodeSnapshot(snapshot model.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}
