package mileagelog

import (
	"context"
	"fmt"

	"github.com/mileagekit/mileage/internal/model"
)

// Repository persists entries for an owner.
type Repository interface {
	Create(ctx context.Context, owner string, e model.LogEntry) error
	Delete(ctx context.Context, owner, entryID string) error
	DeleteAll(ctx context.Context, owner string) error
	List(ctx context.Context, owner string) ([]model.LogEntry, error)
}

// Service binds a Log to a Repository for one owner. The in-memory log is
// updated only after the repository call succeeds.
type Service struct {
	repo  Repository
	owner string
	log   *Log
}

// NewService creates a Service with an empty log. Call Load to read back
// stored entries.
func NewService(repo Repository, owner string) *Service {
	return &Service{repo: repo, owner: owner, log: New()}
}

// Owner returns the owner the service reads and writes.
func (s *Service) Owner() string {
	return s.owner
}

// Log returns the in-memory log.
func (s *Service) Log() *Log {
	return s.log
}

// Load replaces the in-memory log with the stored entries.
func (s *Service) Load(ctx context.Context) error {
	entries, err := s.repo.List(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("loading log for %s: %w", s.owner, err)
	}
	s.log = New(entries...)
	return nil
}

// Add validates and stores a draft.
func (s *Service) Add(ctx context.Context, d Draft) (model.LogEntry, error) {
	entry, err := s.log.Add(d)
	if err != nil {
		return model.LogEntry{}, err
	}
	if err := s.repo.Create(ctx, s.owner, entry); err != nil {
		s.log.Remove(entry.ID)
		return model.LogEntry{}, fmt.Errorf("storing entry: %w", err)
	}
	return entry, nil
}

// Remove deletes an entry. Unknown IDs are not an error.
func (s *Service) Remove(ctx context.Context, entryID string) error {
	if err := s.repo.Delete(ctx, s.owner, entryID); err != nil {
		return fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	s.log.Remove(entryID)
	return nil
}

// Clear deletes every entry for the owner.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx, s.owner); err != nil {
		return fmt.Errorf("clearing log for %s: %w", s.owner, err)
	}
	s.log.Clear()
	return nil
}
