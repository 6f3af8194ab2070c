package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clinicwise/clinic-backend/internal/models"
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*models.Category, error)
	List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	SoftDelete(ctx context.Context, id, actorID string) error
}

// CategoryService manages reference-data categories
type CategoryService struct {
	repo   CategoryRepository
	logger *slog.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(repo CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// CategoryInput holds the editable category fields
type CategoryInput struct {
	Name        string
	Code        string
	Value       *string
	Description *string
	ParentID    *string
	IsActive    *bool // defaults to true on create, unchanged on update
}

// List returns a page of categories
func (s *CategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error) {
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	categories, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list categories", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return categories, total, nil
}

// Get returns a live category
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(ctx, "get category", err)
	}
	return c, nil
}

// Create adds a category. Codes are unique among live categories.
func (s *CategoryService) Create(ctx context.Context, actorID string, in CategoryInput) (*models.Category, error) {
	if err := s.ensureParent(ctx, in.ParentID, ""); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	c, err := s.repo.Create(ctx, &models.Category{
		Name:        in.Name,
		Code:        in.Code,
		Value:       in.Value,
		Description: in.Description,
		ParentID:    in.ParentID,
		IsActive:    active,
		CreatedBy:   &actorID,
	})
	if err != nil {
		return nil, s.mapError(ctx, "create category", err)
	}
	return c, nil
}

// Update replaces a category's editable fields
func (s *CategoryService) Update(ctx context.Context, actorID, id string, in CategoryInput) (*models.Category, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(ctx, "get category", err)
	}

	if err := s.ensureParent(ctx, in.ParentID, id); err != nil {
		return nil, err
	}

	current.Name = in.Name
	current.Code = in.Code
	current.Value = in.Value
	current.Description = in.Description
	current.ParentID = in.ParentID
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	current.UpdatedBy = &actorID

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, s.mapError(ctx, "update category", err)
	}
	return updated, nil
}

// Delete soft-deletes a category
func (s *CategoryService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.SoftDelete(ctx, id, actorID); err != nil {
		return s.mapError(ctx, "delete category", err)
	}
	return nil
}

// ensureParent checks that the parent exists and is not the category itself
func (s *CategoryService) ensureParent(ctx context.Context, parentID *string, selfID string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == selfID {
		return models.NewBadRequest("category cannot be its own parent")
	}
	if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewBadRequest("parent category does not exist")
		}
		return s.mapError(ctx, "get parent category", err)
	}
	return nil
}

func (s *CategoryService) mapError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrBadRequest):
		return err
	default:
		s.logger.ErrorContext(ctx, "failed to "+op, slog.Any("error", err))
		return models.ErrInternalServer
	}
}
