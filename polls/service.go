package polls

import (
	"context"
	"errors"
	"fmt"

	"pollboard-backend/auth"
	"pollboard-backend/models"
	"pollboard-backend/validation"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service is the poll command/query layer. Every mutating operation
// authorizes itself against the identity gateway before touching data.
type Service struct {
	db *gorm.DB
	gw *auth.Gateway
}

// NewService builds the poll service.
func NewService(db *gorm.DB, gw *auth.Gateway) *Service {
	return &Service{db: db, gw: gw}
}

// Create inserts a poll owned by the given user. Input must already be
// validated and sanitized.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params validation.PollParams) (*models.Poll, error) {
	if userID == uuid.Nil {
		return nil, auth.ErrAuthenticationRequired
	}

	poll := models.Poll{
		UserID:                userID,
		Question:              params.Question,
		Options:               params.Options,
		AllowMultipleVotes:    params.AllowMultipleVotes,
		RequireAuthentication: params.RequireAuthentication,
	}
	if err := s.db.WithContext(ctx).Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	return &poll, nil
}

// UserPolls returns the caller's polls, newest first.
func (s *Service) UserPolls(ctx context.Context, userID uuid.UUID) ([]models.Poll, error) {
	if userID == uuid.Nil {
		return nil, auth.ErrAuthenticationRequired
	}
	var out []models.Poll
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return out, nil
}

// ByID is the unauthenticated read used by public voting pages. No ownership
// check.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).First(&poll, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch poll: %w", err)
	}
	return &poll, nil
}

// ByIDForEdit fetches a poll for editing. Only the owner or an admin may see
// the edit view; everyone else gets a generic denial.
func (s *Service) ByIDForEdit(ctx context.Context, id uuid.UUID, user *models.User) (*models.Poll, error) {
	return s.authorizeMutation(ctx, id, user)
}

// Update re-checks ownership against the live row immediately before
// writing, then replaces question and options. The voting flags are fixed at
// creation and keep their stored values.
func (s *Service) Update(ctx context.Context, id uuid.UUID, user *models.User, question string, options []string) error {
	poll, err := s.authorizeMutation(ctx, id, user)
	if err != nil {
		return err
	}

	poll.Question = question
	poll.Options = options
	if err := s.db.WithContext(ctx).Save(poll).Error; err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	return nil
}

// Delete removes a poll and its votes. Votes go first so they never outlive
// the poll they reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, user *models.User) error {
	poll, err := s.authorizeMutation(ctx, id, user)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := tx.Delete(&models.Poll{}, "id = ?", poll.ID).Error; err != nil {
			return fmt.Errorf("delete poll: %w", err)
		}
		return nil
	})
}

// SubmitVote records a vote. user may be nil for anonymous voters. The
// option index is checked against the poll's current option count, so a vote
// from a stale page referencing a removed option is rejected.
//
// The duplicate check and the insert are separate round trips; two truly
// concurrent votes can both pass the check, and the unique index on
// (poll_id, user_id) is the backstop.
func (s *Service) SubmitVote(ctx context.Context, pollID uuid.UUID, user *models.User, optionIndex int) error {
	poll, err := s.ByID(ctx, pollID)
	if err != nil {
		return err
	}

	if poll.RequireAuthentication && user == nil {
		return ErrAuthRequired
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return ErrOptionOutOfRange
	}

	vote := models.Vote{PollID: poll.ID, OptionIndex: optionIndex}
	if user != nil {
		var existing int64
		err := s.db.WithContext(ctx).Model(&models.Vote{}).
			Where("poll_id = ? AND user_id = ?", poll.ID, user.ID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("check existing vote: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateVote
		}
		id := user.ID
		vote.UserID = &id
	}

	if err := s.db.WithContext(ctx).Create(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// Results returns per-option vote counts for a poll, in option order.
func (s *Service) Results(ctx context.Context, pollID uuid.UUID) ([]int64, error) {
	poll, err := s.ByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	var votes []models.Vote
	if err := s.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("fetch votes: %w", err)
	}

	counts := make([]int64, len(poll.Options))
	for _, v := range votes {
		if v.OptionIndex >= 0 && v.OptionIndex < len(counts) {
			counts[v.OptionIndex]++
		}
	}
	return counts, nil
}

// All returns every poll, newest first. Admin only.
func (s *Service) All(c context.Context, user *models.User) ([]models.Poll, error) {
	if user == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	if !s.gw.IsAdmin(c, user.ID) {
		return nil, auth.ErrAuthorizationDenied
	}

	var out []models.Poll
	if err := s.db.WithContext(c).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list all polls: %w", err)
	}
	return out, nil
}

// authorizeMutation fetches the live row and gates it on owner-or-admin.
// Shared by edit-fetch, update and delete so the ownership rule cannot drift
// between call sites.
func (s *Service) authorizeMutation(ctx context.Context, pollID uuid.UUID, user *models.User) (*models.Poll, error) {
	if user == nil {
		return nil, auth.ErrAuthenticationRequired
	}

	poll, err := s.ByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if poll.UserID != user.ID && !s.gw.IsAdmin(ctx, user.ID) {
		log.WithFields(log.Fields{"poll": pollID, "user": user.ID}).Warn("unauthorized poll mutation attempt")
		return nil, auth.ErrAuthorizationDenied
	}
	return poll, nil
}
