package catservice

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
	d := rpc.NewDispatcher(nil, "cat_queue", Origin)
	RegisterActions(d, svc)
	return d, svc
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return body
}

func TestActionsRoundTrip(t *testing.T) {
	d, svc := newActionDispatcher(t)
	ctx := context.Background()

	cat1 := createCat(t, svc, "Whiskers")
	cat2 := createCat(t, svc, "Mittens")

	tests := []struct {
		action  string
		payload any
		want    string // expected string data, empty to skip
	}{
		{ActionCreateCat, models.Cat{Name: "Tom", Color: models.ColorGray}, ""},
		{ActionGetCatByID, cat1.ID, ""},
		{ActionUpdateCat, UpdateCatRequest{ID: cat1.ID, Cat: models.Cat{Name: "Tommy", Color: models.ColorGray}}, ""},
		{ActionBefriendCats, FriendshipRequest{Cat1ID: cat1.ID, Cat2ID: cat2.ID}, "Befriended cats successfully"},
		{ActionUnfriendCats, FriendshipRequest{Cat1ID: cat1.ID, Cat2ID: cat2.ID}, "Unfriended cats successfully"},
		{ActionGetAllCats, PageRequest{Page: 0, Size: 10}, ""},
		{ActionGetAllCatsFiltered, FilteredPageRequest{Page: 0, Size: 10}, ""},
		{ActionGetCatsByOwnerID, int64(1), ""},
		{ActionSetOwnerToCat, OwnershipRequest{CatID: cat1.ID, OwnerID: 1}, "Owner is set successfully"},
		{ActionOwnerOwnsCat, OwnerOwnsCatRequest{OwnerID: 1, CatID: cat1.ID}, ""},
		{ActionUnsetOwnerFromCat, cat1.ID, "Owner is unset successfully"},
		{ActionDeleteCat, cat2.ID, "Deleted cat successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			env := d.Dispatch(ctx, tt.action, mustJSON(t, tt.payload))
			if env.Status != http.StatusOK {
				t.Fatalf("expected status 200, got %d (%s)", env.Status, env.Message)
			}
			if tt.want != "" {
				var got string
				if err := json.Unmarshal(env.Data, &got); err != nil {
					t.Fatalf("failed to decode data: %v", err)
				}
				if got != tt.want {
					t.Errorf("expected %q, got %q", tt.want, got)
				}
			}
		})
	}
}

func TestActionsRejectMalformedPayload(t *testing.T) {
	d, _ := newActionDispatcher(t)
	ctx := context.Background()

	actions := []string{
		ActionCreateCat, ActionGetCatByID, ActionUpdateCat, ActionDeleteCat,
		ActionBefriendCats, ActionUnfriendCats, ActionGetAllCats,
		ActionGetAllCatsFiltered, ActionGetCatsByOwnerID, ActionSetOwnerToCat,
		ActionUnsetOwnerFromCat, ActionOwnerOwnsCat,
	}

	for _, action := range actions {
		t.Run(action, func(t *testing.T) {
			env := d.Dispatch(ctx, action, []byte(`{not json`))
			if env.Status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", env.Status)
			}
			if env.Message != "Invalid payload" {
				t.Errorf("expected \"Invalid payload\", got %q", env.Message)
			}
		})
	}
}

func TestActionUnknownTag(t *testing.T) {
	d, _ := newActionDispatcher(t)

	env := d.Dispatch(context.Background(), "TELEPORT_CAT", []byte(`1`))

	if env.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", env.Status)
	}
	if env.Message != "Unknown action: TELEPORT_CAT" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestActionGetMissingCat(t *testing.T) {
	d, _ := newActionDispatcher(t)

	env := d.Dispatch(context.Background(), ActionGetCatByID, []byte(`404`))

	if env.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", env.Status)
	}
	if env.Message != "Cat not found" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestActionImproperUpdate(t *testing.T) {
	d, svc := newActionDispatcher(t)
	cat := createCat(t, svc, "Whiskers")
	ownerID := int64(9)

	body := mustJSON(t, UpdateCatRequest{ID: cat.ID, Cat: models.Cat{Name: "Whiskers", Color: models.ColorBlack, OwnerID: &ownerID}})
	env := d.Dispatch(context.Background(), ActionUpdateCat, body)

	if env.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", env.Status)
	}
	if env.Message != "Do not use UPDATE_CAT for updating the owner! Use SET_OWNER_TO_CAT for that" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestActionCatIDsByOwner(t *testing.T) {
	d, svc := newActionDispatcher(t)
	ctx := context.Background()
	cat1 := createCat(t, svc, "Whiskers")
	cat2 := createCat(t, svc, "Mittens")
	createCat(t, svc, "Stray")
	if err := svc.SetOwner(ctx, cat1.ID, 7); err != nil {
		t.Fatalf("set owner failed: %v", err)
	}
	if err := svc.SetOwner(ctx, cat2.ID, 7); err != nil {
		t.Fatalf("set owner failed: %v", err)
	}

	env := d.Dispatch(ctx, ActionGetCatsByOwnerID, []byte(`7`))

	if env.Status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", env.Status, env.Message)
	}
	var ids []int64
	if err := json.Unmarshal(env.Data, &ids); err != nil {
		t.Fatalf("failed to decode ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != cat1.ID || ids[1] != cat2.ID {
		t.Errorf("unexpected ids %v", ids)
	}
}
