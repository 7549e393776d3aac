// Package catservice implements the cat domain: CRUD, the symmetric
// friendship relation and the ownership link, exposed to the rest of the
// system only through broker actions.
package catservice

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/cache"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

const catViewKeyPrefix = "cat:view:"

// Service encapsulates the cat invariants above the repository: identity,
// ownership and the friend list are immutable through Update, and friendship
// edges are always mutated as a mirrored pair.
type Service struct {
	repo Repository
	view *cache.View[models.Cat]
}

// NewService creates a Service. view may be nil, in which case every read
// goes to the repository.
func NewService(repo Repository, view *cache.View[models.Cat]) *Service {
	return &Service{repo: repo, view: view}
}

// Create stores a new cat. The id is assigned by the store; ownership and
// friendships can only be established through their dedicated operations, so
// any values supplied by the caller are discarded.
func (s *Service) Create(ctx context.Context, cat models.Cat) (*models.Cat, error) {
	cat.ID = 0
	cat.OwnerID = nil
	cat.Friends = []int64{}
	if err := s.repo.Create(&cat); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, &cat)
	return &cat, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Cat, error) {
	if s.view != nil {
		if cat, ok := s.view.Get(ctx, catViewKey(id)); ok {
			return cat, nil
		}
	}
	cat, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cat)
	return cat, nil
}

// Update merges the mutable fields of in into the stored cat. The id, the
// owner link and the friend set must not differ from the stored values; the
// dedicated set/unset-owner and befriend/unfriend operations are the only
// paths that may change them.
func (s *Service) Update(ctx context.Context, id int64, in models.Cat) (*models.Cat, error) {
	original, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if in.ID != 0 && in.ID != original.ID {
		return nil, rpc.ImproperUpdate("Cannot update Cat id")
	}
	if in.OwnerID != nil && (original.OwnerID == nil || *in.OwnerID != *original.OwnerID) {
		return nil, rpc.ImproperUpdate("Do not use UPDATE_CAT for updating the owner! Use SET_OWNER_TO_CAT for that")
	}
	if in.Friends != nil && !equalIDSets(in.Friends, original.Friends) {
		return nil, rpc.ImproperUpdate("Do not use UPDATE_CAT for updating the friend list! Use BEFRIEND_CATS or UNFRIEND_CATS")
	}

	updated := models.Cat{
		ID:       id,
		Name:     in.Name,
		Birthday: in.Birthday,
		Breed:    in.Breed,
		Color:    in.Color,
		OwnerID:  original.OwnerID,
		Friends:  original.Friends,
	}
	if err := s.repo.Update(&updated); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, &updated)
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

// Befriend adds the symmetric friendship edge between two cats. Both sides
// are persisted before the call returns; if the store fails between the two
// directions the repository transaction is responsible for rolling back.
func (s *Service) Befriend(ctx context.Context, cat1ID, cat2ID int64) error {
	if _, err := s.repo.GetByID(cat1ID); err != nil {
		return rpc.NotFound("Cat-1 not found")
	}
	if _, err := s.repo.GetByID(cat2ID); err != nil {
		return rpc.NotFound("Cat-2 not found")
	}
	if err := s.repo.AddFriendship(cat1ID, cat2ID); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, cat1ID)
	s.cacheInvalidate(ctx, cat2ID)
	return nil
}

// Unfriend removes the friendship edge from both sides. Removing an edge
// that does not exist is a successful no-op.
func (s *Service) Unfriend(ctx context.Context, cat1ID, cat2ID int64) error {
	if _, err := s.repo.GetByID(cat1ID); err != nil {
		return rpc.NotFound("Cat-1 not found")
	}
	if _, err := s.repo.GetByID(cat2ID); err != nil {
		return rpc.NotFound("Cat-2 not found")
	}
	if err := s.repo.RemoveFriendship(cat1ID, cat2ID); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, cat1ID)
	s.cacheInvalidate(ctx, cat2ID)
	return nil
}

// List returns one page of cats matching the filter. Size is not bounded at
// this layer; the gateway applies its own default.
func (s *Service) List(ctx context.Context, filter models.CatFilter, page, size int) ([]models.Cat, error) {
	if page < 0 || size < 0 {
		return nil, &rpc.InvalidPayloadError{Err: fmt.Errorf("negative page or size")}
	}
	return s.repo.List(filter, page, size)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]models.Cat, error) {
	return s.repo.ListByOwner(ownerID)
}

// SetOwner is, together with UnsetOwner, the only sanctioned way to mutate
// the ownership link.
func (s *Service) SetOwner(ctx context.Context, catID, ownerID int64) error {
	if _, err := s.repo.GetByID(catID); err != nil {
		return err
	}
	if err := s.repo.SetOwner(catID, &ownerID); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, catID)
	return nil
}

func (s *Service) UnsetOwner(ctx context.Context, catID int64) error {
	if _, err := s.repo.GetByID(catID); err != nil {
		return err
	}
	if err := s.repo.SetOwner(catID, nil); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, catID)
	return nil
}

// OwnerOwnsCat reports whether the cat's owner link equals ownerID. A cat
// with no owner is owned by nobody. Sits on the hot path of every protected
// gateway request, which is why Get serves it through the cache.
func (s *Service) OwnerOwnsCat(ctx context.Context, ownerID, catID int64) (bool, error) {
	cat, err := s.Get(ctx, catID)
	if err != nil {
		return false, err
	}
	return cat.OwnerID != nil && *cat.OwnerID == ownerID, nil
}

func (s *Service) cacheSet(ctx context.Context, cat *models.Cat) {
	if s.view != nil {
		s.view.Set(ctx, catViewKey(cat.ID), cat)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, id int64) {
	if s.view != nil {
		s.view.Delete(ctx, catViewKey(id))
	}
}

func catViewKey(id int64) string {
	return catViewKeyPrefix + strconv.FormatInt(id, 10)
}

func equalIDSets(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
