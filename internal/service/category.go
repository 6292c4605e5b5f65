package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

const MaxCategoryNameLength = 100

// CategoryService manages product categories. Names are unique ignoring case.
type CategoryService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewCategoryService(store *repository.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: store, logger: logger}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.Categories.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/category: loading categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	c := model.Category{ID: xid.New().String(), Name: name}
	err = s.store.Exclusive(func() error {
		categories, err := s.store.Categories.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		if categoryNameTaken(categories, name, "") {
			return apperror.Conflict(fmt.Sprintf("category %q already exists", name))
		}
		if err := s.store.Categories.Save(ctx, append(categories, c)); err != nil {
			return fmt.Errorf("saving categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/category", err)
	}

	s.logger.Info("category created", slog.String("id", c.ID), slog.String("name", c.Name))
	return &c, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name string) (*model.Category, error) {
	id = strings.TrimSpace(id)
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	var updated model.Category
	err = s.store.Exclusive(func() error {
		categories, err := s.store.Categories.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		i := slices.IndexFunc(categories, func(c model.Category) bool { return c.ID == id })
		if i < 0 {
			return apperror.NotFound("category", id)
		}
		if categoryNameTaken(categories, name, id) {
			return apperror.Conflict(fmt.Sprintf("category %q already exists", name))
		}
		categories[i].Name = name
		updated = categories[i]
		if err := s.store.Categories.Save(ctx, categories); err != nil {
			return fmt.Errorf("saving categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/category", err)
	}

	s.logger.Info("category updated", slog.String("id", id), slog.String("name", name))
	return &updated, nil
}

// Delete removes the category. Products keep their category string.
func (s *CategoryService) Delete(ctx context.Context, id string) (*model.Category, error) {
	id = strings.TrimSpace(id)

	var deleted model.Category
	err := s.store.Exclusive(func() error {
		categories, err := s.store.Categories.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		i := slices.IndexFunc(categories, func(c model.Category) bool { return c.ID == id })
		if i < 0 {
			return apperror.NotFound("category", id)
		}
		deleted = categories[i]
		if err := s.store.Categories.Save(ctx, slices.Delete(categories, i, i+1)); err != nil {
			return fmt.Errorf("saving categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/category", err)
	}

	s.logger.Info("category deleted", slog.String("id", id))
	return &deleted, nil
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "category name is required")
	}
	if len(name) > MaxCategoryNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}
	return name, nil
}

func categoryNameTaken(categories []model.Category, name, exceptID string) bool {
	for _, c := range categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
