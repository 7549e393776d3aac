package gateway

import (
	"context"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
)

// Composer merges owner-service and cat-service results into the
// OwnerWithCats view and coordinates the two-step ownership mutations.
//
// The two calls are deliberately not transactional: when the second call
// fails, the first call's effect stands and the caller sees the error. The
// mutations routed through here (set/unset owner) are idempotent and
// individually retryable, which is why this weakness is acceptable.
type Composer struct {
	owners *OwnerClient
	cats   *CatClient
}

func NewComposer(owners *OwnerClient, cats *CatClient) *Composer {
	return &Composer{owners: owners, cats: cats}
}

func (c *Composer) withCats(ctx context.Context, owner *models.Owner) (*models.OwnerWithCats, error) {
	ids, err := c.cats.CatIDsByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return &models.OwnerWithCats{Owner: *owner, Cats: ids}, nil
}

// GetOwner fetches an owner and attaches its cat ids.
func (c *Composer) GetOwner(ctx context.Context, id int64) (*models.OwnerWithCats, error) {
	owner, err := c.owners.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.withCats(ctx, owner)
}

// UpdateOwner updates the owner, then re-reads the cat list for the view.
func (c *Composer) UpdateOwner(ctx context.Context, id int64, owner models.Owner) (*models.OwnerWithCats, error) {
	updated, err := c.owners.Update(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	return c.withCats(ctx, updated)
}

// ListOwners pages through owners and attaches cat ids to each one, costing
// one cat-service call per owner on the page.
func (c *Composer) ListOwners(ctx context.Context, filter models.OwnerFilter, page, size int) ([]models.OwnerWithCats, error) {
	owners, err := c.owners.List(ctx, filter, page, size)
	if err != nil {
		return nil, err
	}
	result := make([]models.OwnerWithCats, 0, len(owners))
	for i := range owners {
		view, err := c.withCats(ctx, &owners[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, nil
}

// AddCatToOwner verifies the owner exists, then points the cat at it. A
// failure after the verification leaves no partial state: the ownership
// write is the only mutation.
func (c *Composer) AddCatToOwner(ctx context.Context, ownerID, catID int64) (string, error) {
	if _, err := c.owners.Get(ctx, ownerID); err != nil {
		return "", err
	}
	return c.cats.SetOwner(ctx, catID, ownerID)
}

// RemoveCatFromOwner verifies the owner exists, then clears the cat's owner
// link.
func (c *Composer) RemoveCatFromOwner(ctx context.Context, ownerID, catID int64) (string, error) {
	if _, err := c.owners.Get(ctx, ownerID); err != nil {
		return "", err
	}
	return c.cats.UnsetOwner(ctx, catID)
}
