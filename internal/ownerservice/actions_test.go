package ownerservice

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

func newActionDispatcher(t *testing.T) (*rpc.Dispatcher, *Service) {
	t.Helper()
	svc, _ := newTestService()
	d := rpc.NewDispatcher(nil, "owner_queue", Origin)
	RegisterActions(d, svc)
	return d, svc
}

func TestOwnerActionsRoundTrip(t *testing.T) {
	d, _ := newActionDispatcher(t)
	ctx := context.Background()

	// CREATE_OWNER
	body, _ := json.Marshal(models.Owner{Name: "Alice"})
	env := d.Dispatch(ctx, ActionCreateOwner, body)
	if env.Status != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", env.Status, env.Message)
	}
	var created models.Owner
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode created owner: %v", err)
	}

	// GET_OWNER_BY_ID takes a bare integer payload.
	body, _ = json.Marshal(created.ID)
	env = d.Dispatch(ctx, ActionGetOwnerByID, body)
	if env.Status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d (%s)", env.Status, env.Message)
	}

	// UPDATE_OWNER
	body, _ = json.Marshal(UpdateOwnerRequest{ID: created.ID, Owner: models.Owner{Name: "Alicia"}})
	env = d.Dispatch(ctx, ActionUpdateOwner, body)
	if env.Status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", env.Status, env.Message)
	}
	var updated models.Owner
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("failed to decode updated owner: %v", err)
	}
	if updated.Name != "Alicia" {
		t.Errorf("expected name Alicia, got %q", updated.Name)
	}

	// GET_ALL_OWNERS / GET_ALL_OWNERS_FILTERED
	body, _ = json.Marshal(PageRequest{Page: 0, Size: 10})
	env = d.Dispatch(ctx, ActionGetAllOwners, body)
	if env.Status != http.StatusOK {
		t.Fatalf("list: expected 200, got %d (%s)", env.Status, env.Message)
	}
	var owners []models.Owner
	if err := json.Unmarshal(env.Data, &owners); err != nil {
		t.Fatalf("failed to decode owners: %v", err)
	}
	if len(owners) != 1 {
		t.Errorf("expected 1 owner, got %d", len(owners))
	}

	body, _ = json.Marshal(FilteredPageRequest{Page: 0, Size: 10})
	env = d.Dispatch(ctx, ActionGetAllOwnersFiltered, body)
	if env.Status != http.StatusOK {
		t.Fatalf("filtered list: expected 200, got %d (%s)", env.Status, env.Message)
	}

	// DELETE_OWNER replies with null data.
	body, _ = json.Marshal(created.ID)
	env = d.Dispatch(ctx, ActionDeleteOwner, body)
	if env.Status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d (%s)", env.Status, env.Message)
	}
	if string(env.Data) != "null" {
		t.Errorf("expected null data, got %s", env.Data)
	}
}

func TestOwnerActionMissingOwner(t *testing.T) {
	d, _ := newActionDispatcher(t)

	env := d.Dispatch(context.Background(), ActionGetOwnerByID, []byte(`404`))

	if env.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", env.Status)
	}
	if env.Message != "Owner not found" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestOwnerActionsRejectMalformedPayload(t *testing.T) {
	d, _ := newActionDispatcher(t)
	ctx := context.Background()

	actions := []string{
		ActionCreateOwner, ActionGetOwnerByID, ActionUpdateOwner,
		ActionDeleteOwner, ActionGetAllOwners, ActionGetAllOwnersFiltered,
	}
	for _, action := range actions {
		t.Run(action, func(t *testing.T) {
			env := d.Dispatch(ctx, action, []byte(`{not json`))
			if env.Status != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", env.Status)
			}
			if env.Message != "Invalid payload" {
				t.Errorf("expected \"Invalid payload\", got %q", env.Message)
			}
		})
	}
}

func TestOwnerActionUnknownTag(t *testing.T) {
	d, _ := newActionDispatcher(t)

	env := d.Dispatch(context.Background(), "CLONE_OWNER", []byte(`1`))

	if env.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", env.Status)
	}
	if env.Message != "Unknown action: CLONE_OWNER" {
		t.Errorf("unexpected message %q", env.Message)
	}
}
