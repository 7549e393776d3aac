package catservice

import (
	"context"
	"encoding/json"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

// Action tags handled by the cat service. The set is closed: the dispatcher
// rejects anything else with a 500 envelope.
const (
	ActionCreateCat          = "CREATE_CAT"
	ActionGetCatByID         = "GET_CAT_BY_ID"
	ActionUpdateCat          = "UPDATE_CAT"
	ActionDeleteCat          = "DELETE_CAT"
	ActionBefriendCats       = "BEFRIEND_CATS"
	ActionUnfriendCats       = "UNFRIEND_CATS"
	ActionGetAllCats         = "GET_ALL_CATS"
	ActionGetAllCatsFiltered = "GET_ALL_CATS_FILTERED"
	ActionGetCatsByOwnerID   = "GET_CATS_BY_OWNER_ID"
	ActionSetOwnerToCat      = "SET_OWNER_TO_CAT"
	ActionUnsetOwnerFromCat  = "UNSET_OWNER_FROM_CAT"
	ActionOwnerOwnsCat       = "OWNER_OWNS_CAT"
)

// Origin identifies the cat service in every envelope it produces.
const Origin = "Cat Service"

// UpdateCatRequest is the UPDATE_CAT payload.
type UpdateCatRequest struct {
	ID  int64      `json:"id"`
	Cat models.Cat `json:"cat"`
}

// FriendshipRequest is the BEFRIEND_CATS / UNFRIEND_CATS payload.
type FriendshipRequest struct {
	Cat1ID int64 `json:"cat1Id"`
	Cat2ID int64 `json:"cat2Id"`
}

// PageRequest is the GET_ALL_CATS payload.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// FilteredPageRequest is the GET_ALL_CATS_FILTERED payload.
type FilteredPageRequest struct {
	Filter models.CatFilter `json:"filter"`
	Page   int              `json:"page"`
	Size   int              `json:"size"`
}

// OwnershipRequest is the SET_OWNER_TO_CAT payload.
type OwnershipRequest struct {
	CatID   int64 `json:"catId"`
	OwnerID int64 `json:"ownerId"`
}

// OwnerOwnsCatRequest is the OWNER_OWNS_CAT payload.
type OwnerOwnsCatRequest struct {
	OwnerID int64 `json:"ownerId"`
	CatID   int64 `json:"catId"`
}

// RegisterActions wires every cat action into the dispatcher registry. Each
// handler is a pure adapter: decode the payload, call one service method,
// return the result for envelope wrapping.
func RegisterActions(d *rpc.Dispatcher, svc *Service) {
	d.Register(ActionCreateCat, func(ctx context.Context, body []byte) (any, error) {
		var cat models.Cat
		if err := json.Unmarshal(body, &cat); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.Create(ctx, cat)
	})

	d.Register(ActionGetCatByID, func(ctx context.Context, body []byte) (any, error) {
		id, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		return svc.Get(ctx, id)
	})

	d.Register(ActionUpdateCat, func(ctx context.Context, body []byte) (any, error) {
		var req UpdateCatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.Update(ctx, req.ID, req.Cat)
	})

	d.Register(ActionDeleteCat, func(ctx context.Context, body []byte) (any, error) {
		id, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(ctx, id); err != nil {
			return nil, err
		}
		return "Deleted cat successfully", nil
	})

	d.Register(ActionBefriendCats, func(ctx context.Context, body []byte) (any, error) {
		var req FriendshipRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		if err := svc.Befriend(ctx, req.Cat1ID, req.Cat2ID); err != nil {
			return nil, err
		}
		return "Befriended cats successfully", nil
	})

	d.Register(ActionUnfriendCats, func(ctx context.Context, body []byte) (any, error) {
		var req FriendshipRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		if err := svc.Unfriend(ctx, req.Cat1ID, req.Cat2ID); err != nil {
			return nil, err
		}
		return "Unfriended cats successfully", nil
	})

	d.Register(ActionGetAllCats, func(ctx context.Context, body []byte) (any, error) {
		var req PageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.List(ctx, models.CatFilter{}, req.Page, req.Size)
	})

	d.Register(ActionGetAllCatsFiltered, func(ctx context.Context, body []byte) (any, error) {
		var req FilteredPageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.List(ctx, req.Filter, req.Page, req.Size)
	})

	d.Register(ActionGetCatsByOwnerID, func(ctx context.Context, body []byte) (any, error) {
		ownerID, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		cats, err := svc.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(cats))
		for i, cat := range cats {
			ids[i] = cat.ID
		}
		return ids, nil
	})

	d.Register(ActionSetOwnerToCat, func(ctx context.Context, body []byte) (any, error) {
		var req OwnershipRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		if err := svc.SetOwner(ctx, req.CatID, req.OwnerID); err != nil {
			return nil, err
		}
		return "Owner is set successfully", nil
	})

	d.Register(ActionUnsetOwnerFromCat, func(ctx context.Context, body []byte) (any, error) {
		id, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		if err := svc.UnsetOwner(ctx, id); err != nil {
			return nil, err
		}
		return "Owner is unset successfully", nil
	})

	d.Register(ActionOwnerOwnsCat, func(ctx context.Context, body []byte) (any, error) {
		var req OwnerOwnsCatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.OwnerOwnsCat(ctx, req.OwnerID, req.CatID)
	})
}

// decodeID decodes the bare-integer payload used by single-id actions.
func decodeID(body []byte) (int64, error) {
	var id int64
	if err := json.Unmarshal(body, &id); err != nil {
		return 0, &rpc.InvalidPayloadError{Err: err}
	}
	return id, nil
}
