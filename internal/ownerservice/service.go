// Package ownerservice implements the owner domain. Owners hold no
// back-reference to their cats; the gateway reconstructs the cat list by
// querying the cat service.
package ownerservice

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/cache"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

const ownerViewKeyPrefix = "owner:view:"

type Service struct {
	repo Repository
	view *cache.View[models.Owner]
}

// NewService creates a Service. view may be nil, in which case every read
// goes to the repository.
func NewService(repo Repository, view *cache.View[models.Owner]) *Service {
	return &Service{repo: repo, view: view}
}

func (s *Service) Create(ctx context.Context, owner models.Owner) (*models.Owner, error) {
	owner.ID = 0
	if err := s.repo.Create(&owner); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, &owner)
	return &owner, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Owner, error) {
	if s.view != nil {
		if owner, ok := s.view.Get(ctx, ownerViewKey(id)); ok {
			return owner, nil
		}
	}
	owner, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, owner)
	return owner, nil
}

// Update merges the mutable fields of in into the stored owner; the id must
// not differ from the stored value.
func (s *Service) Update(ctx context.Context, id int64, in models.Owner) (*models.Owner, error) {
	original, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if in.ID != 0 && in.ID != original.ID {
		return nil, rpc.ImproperUpdate("Cannot update Owner id")
	}

	updated := models.Owner{ID: id, Name: in.Name, Birthday: in.Birthday}
	if err := s.repo.Update(&updated); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, &updated)
	return &updated, nil
}

// Delete removes the owner only. Cats referencing it keep their ownerId;
// clearing those links is an explicit UNSET_OWNER_FROM_CAT concern, not a
// cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

func (s *Service) List(ctx context.Context, filter models.OwnerFilter, page, size int) ([]models.Owner, error) {
	if page < 0 || size < 0 {
		return nil, &rpc.InvalidPayloadError{Err: fmt.Errorf("negative page or size")}
	}
	return s.repo.List(filter, page, size)
}

func (s *Service) cacheSet(ctx context.Context, owner *models.Owner) {
	if s.view != nil {
		s.view.Set(ctx, ownerViewKey(owner.ID), owner)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, id int64) {
	if s.view != nil {
		s.view.Delete(ctx, ownerViewKey(id))
	}
}

func ownerViewKey(id int64) string {
	return ownerViewKeyPrefix + strconv.FormatInt(id, 10)
}
