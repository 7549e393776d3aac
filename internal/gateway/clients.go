// Package gateway is the HTTP face of the system. Every domain operation it
// exposes is executed by a blocking RPC over the broker; the gateway holds
// no cat or owner state of its own, only the user store for authentication.
package gateway

import (
	"context"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/catservice"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/ownerservice"
)

// Caller is the subset of rpc.Client the typed clients need. Tests
// substitute an in-memory fake.
type Caller interface {
	Call(ctx context.Context, action string, payload, out any) error
}

// CatClient issues cat-service actions over the broker.
type CatClient struct {
	rpc Caller
}

func NewCatClient(rpc Caller) *CatClient {
	return &CatClient{rpc: rpc}
}

func (c *CatClient) Create(ctx context.Context, cat models.Cat) (*models.Cat, error) {
	var created models.Cat
	if err := c.rpc.Call(ctx, catservice.ActionCreateCat, cat, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *CatClient) Get(ctx context.Context, id int64) (*models.Cat, error) {
	var cat models.Cat
	if err := c.rpc.Call(ctx, catservice.ActionGetCatByID, id, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *CatClient) Update(ctx context.Context, id int64, cat models.Cat) (*models.Cat, error) {
	var updated models.Cat
	req := catservice.UpdateCatRequest{ID: id, Cat: cat}
	if err := c.rpc.Call(ctx, catservice.ActionUpdateCat, req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *CatClient) Delete(ctx context.Context, id int64) (string, error) {
	var ack string
	if err := c.rpc.Call(ctx, catservice.ActionDeleteCat, id, &ack); err != nil {
		return "", err
	}
	return ack, nil
}

func (c *CatClient) List(ctx context.Context, filter models.CatFilter, page, size int) ([]models.Cat, error) {
	var cats []models.Cat
	req := catservice.FilteredPageRequest{Filter: filter, Page: page, Size: size}
	if err := c.rpc.Call(ctx, catservice.ActionGetAllCatsFiltered, req, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *CatClient) Befriend(ctx context.Context, cat1ID, cat2ID int64) (string, error) {
	var ack string
	req := catservice.FriendshipRequest{Cat1ID: cat1ID, Cat2ID: cat2ID}
	if err := c.rpc.Call(ctx, catservice.ActionBefriendCats, req, &ack); err != nil {
		return "", err
	}
	return ack, nil
}

func (c *CatClient) Unfriend(ctx context.Context, cat1ID, cat2ID int64) (string, error) {
	var ack string
	req := catservice.FriendshipRequest{Cat1ID: cat1ID, Cat2ID: cat2ID}
	if err := c.rpc.Call(ctx, catservice.ActionUnfriendCats, req, &ack); err != nil {
		return "", err
	}
	return ack, nil
}

// CatIDsByOwner powers the cross-service owner view.
func (c *CatClient) CatIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	if err := c.rpc.Call(ctx, catservice.ActionGetCatsByOwnerID, ownerID, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *CatClient) SetOwner(ctx context.Context, catID, ownerID int64) (string, error) {
	var ack string
	req := catservice.OwnershipRequest{CatID: catID, OwnerID: ownerID}
	if err := c.rpc.Call(ctx, catservice.ActionSetOwnerToCat, req, &ack); err != nil {
		return "", err
	}
	return ack, nil
}

func (c *CatClient) UnsetOwner(ctx context.Context, catID int64) (string, error) {
	var ack string
	if err := c.rpc.Call(ctx, catservice.ActionUnsetOwnerFromCat, catID, &ack); err != nil {
		return "", err
	}
	return ack, nil
}

// OwnerOwnsCat is the authorization-layer query: it runs synchronously on
// the hot path of every protected cat request.
func (c *CatClient) OwnerOwnsCat(ctx context.Context, ownerID, catID int64) (bool, error) {
	var owns bool
	req := catservice.OwnerOwnsCatRequest{OwnerID: ownerID, CatID: catID}
	if err := c.rpc.Call(ctx, catservice.ActionOwnerOwnsCat, req, &owns); err != nil {
		return false, err
	}
	return owns, nil
}

// OwnerClient issues owner-service actions over the broker.
type OwnerClient struct {
	rpc Caller
}

func NewOwnerClient(rpc Caller) *OwnerClient {
	return &OwnerClient{rpc: rpc}
}

func (c *OwnerClient) Create(ctx context.Context, owner models.Owner) (*models.Owner, error) {
	var created models.Owner
	if err := c.rpc.Call(ctx, ownerservice.ActionCreateOwner, owner, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *OwnerClient) Get(ctx context.Context, id int64) (*models.Owner, error) {
	var owner models.Owner
	if err := c.rpc.Call(ctx, ownerservice.ActionGetOwnerByID, id, &owner); err != nil {
		return nil, err
	}
	return &owner, nil
}

func (c *OwnerClient) Update(ctx context.Context, id int64, owner models.Owner) (*models.Owner, error) {
	var updated models.Owner
	req := ownerservice.UpdateOwnerRequest{ID: id, Owner: owner}
	if err := c.rpc.Call(ctx, ownerservice.ActionUpdateOwner, req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *OwnerClient) Delete(ctx context.Context, id int64) error {
	return c.rpc.Call(ctx, ownerservice.ActionDeleteOwner, id, nil)
}

func (c *OwnerClient) List(ctx context.Context, filter models.OwnerFilter, page, size int) ([]models.Owner, error) {
	var owners []models.Owner
	req := ownerservice.FilteredPageRequest{Filter: filter, Page: page, Size: size}
	if err := c.rpc.Call(ctx, ownerservice.ActionGetAllOwnersFiltered, req, &owners); err != nil {
		return nil, err
	}
	return owners, nil
}
