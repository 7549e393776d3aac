package ownerservice

import (
	"context"
	"encoding/json"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

// Action tags handled by the owner service.
const (
	ActionCreateOwner          = "CREATE_OWNER"
	ActionGetOwnerByID         = "GET_OWNER_BY_ID"
	ActionUpdateOwner          = "UPDATE_OWNER"
	ActionDeleteOwner          = "DELETE_OWNER"
	ActionGetAllOwners         = "GET_ALL_OWNERS"
	ActionGetAllOwnersFiltered = "GET_ALL_OWNERS_FILTERED"
)

// Origin identifies the owner service in every envelope it produces.
const Origin = "Owner Service"

// UpdateOwnerRequest is the UPDATE_OWNER payload.
type UpdateOwnerRequest struct {
	ID    int64        `json:"id"`
	Owner models.Owner `json:"owner"`
}

// PageRequest is the GET_ALL_OWNERS payload.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// FilteredPageRequest is the GET_ALL_OWNERS_FILTERED payload.
type FilteredPageRequest struct {
	Filter models.OwnerFilter `json:"filter"`
	Page   int                `json:"page"`
	Size   int                `json:"size"`
}

// RegisterActions wires every owner action into the dispatcher registry.
func RegisterActions(d *rpc.Dispatcher, svc *Service) {
	d.Register(ActionCreateOwner, func(ctx context.Context, body []byte) (any, error) {
		var owner models.Owner
		if err := json.Unmarshal(body, &owner); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.Create(ctx, owner)
	})

	d.Register(ActionGetOwnerByID, func(ctx context.Context, body []byte) (any, error) {
		id, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		return svc.Get(ctx, id)
	})

	d.Register(ActionUpdateOwner, func(ctx context.Context, body []byte) (any, error) {
		var req UpdateOwnerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.Update(ctx, req.ID, req.Owner)
	})

	d.Register(ActionDeleteOwner, func(ctx context.Context, body []byte) (any, error) {
		id, err := decodeID(body)
		if err != nil {
			return nil, err
		}
		return nil, svc.Delete(ctx, id)
	})

	d.Register(ActionGetAllOwners, func(ctx context.Context, body []byte) (any, error) {
		var req PageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.List(ctx, models.OwnerFilter{}, req.Page, req.Size)
	})

	d.Register(ActionGetAllOwnersFiltered, func(ctx context.Context, body []byte) (any, error) {
		var req FilteredPageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &rpc.InvalidPayloadError{Err: err}
		}
		return svc.List(ctx, req.Filter, req.Page, req.Size)
	})
}

func decodeID(body []byte) (int64, error) {
	var id int64
	if err := json.Unmarshal(body, &id); err != nil {
		return 0, &rpc.InvalidPayloadError{Err: err}
	}
	return id, nil
}
