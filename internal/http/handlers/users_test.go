package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Fake store implementing the handlers.UserAdmin interface

type fakeAdmin struct {
	listFn      func(ctx context.Context, f user.ListFilter) ([]user.User, error)
	setStatusFn func(ctx context.Context, ids []string, status user.Status) ([]user.User, error)
	deleteFn    func(ctx context.Context, ids []string) ([]user.DeletedUser, error)
}

func (f *fakeAdmin) List(ctx context.Context, filter user.ListFilter) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return []user.User{}, nil
}

func (f *fakeAdmin) SetStatus(ctx context.Context, ids []string, status user.Status) ([]user.User, error) {
	if f.setStatusFn != nil {
		return f.setStatusFn(ctx, ids, status)
	}
	return []user.User{}, nil
}

func (f *fakeAdmin) Delete(ctx context.Context, ids []string) ([]user.DeletedUser, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ids)
	}
	return []user.DeletedUser{}, nil
}

func TestListUsersHandler(t *testing.T) {
	var captured user.ListFilter

	admin := &fakeAdmin{
		listFn: func(_ context.Context, f user.ListFilter) ([]user.User, error) {
			captured = f
			return []user.User{
				{ID: uuid.NewString(), Name: "Alice", Status: user.StatusBlocked},
				{ID: uuid.NewString(), Name: "Albert", Status: user.StatusBlocked},
			}, nil
		},
	}

	h := handlers.NewUsersHandler(admin, testLogger())
	r := setupRouter(http.MethodGet, "/users", h.List)

	w := doJSON(r, http.MethodGet, "/users?filter=al&statusFilter=blocked&sortBy=name&sortOrder=asc", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}

	want := user.ListFilter{Search: "al", Status: "blocked", SortBy: "name", SortOrder: "asc"}

	if captured != want {
		t.Errorf("filter passed to store = %+v, want %+v", captured, want)
	}

	var resp struct {
		Users []user.User `json:"users"`
		Total int         `json:"total"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Total != 2 || len(resp.Users) != 2 {
		t.Errorf("total = %d, users = %d, want 2 and 2", resp.Total, len(resp.Users))
	}
}

func TestListUsersDefaults(t *testing.T) {
	var captured user.ListFilter

	admin := &fakeAdmin{
		listFn: func(_ context.Context, f user.ListFilter) ([]user.User, error) {
			captured = f
			return []user.User{}, nil
		},
	}

	h := handlers.NewUsersHandler(admin, testLogger())
	r := setupRouter(http.MethodGet, "/users", h.List)

	w := doJSON(r, http.MethodGet, "/users", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}

	want := user.ListFilter{Search: "", Status: "all", SortBy: "last_login_time", SortOrder: "desc"}

	if captured != want {
		t.Errorf("default filter = %+v, want %+v", captured, want)
	}
}

func TestListUsersStoreError(t *testing.T) {
	admin := &fakeAdmin{
		listFn: func(_ context.Context, _ user.ListFilter) ([]user.User, error) {
			return nil, errors.New("pq: relation gone")
		},
	}

	h := handlers.NewUsersHandler(admin, testLogger())
	r := setupRouter(http.MethodGet, "/users", h.List)

	w := doJSON(r, http.MethodGet, "/users", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	if body := w.Body.String(); strings.Contains(body, "relation") {
		t.Errorf("response leaks storage detail: %s", body)
	}
}

func TestBulkValidation(t *testing.T) {
	// block, unblock and delete share the same input rules
	endpoints := []struct {
		name   string
		method string
		path   string
		mount  func(h *handlers.UsersHandler) gin.HandlerFunc
	}{
		{name: "block", method: http.MethodPatch, path: "/users/block", mount: func(h *handlers.UsersHandler) gin.HandlerFunc { return h.Block }},
		{name: "unblock", method: http.MethodPatch, path: "/users/unblock", mount: func(h *handlers.UsersHandler) gin.HandlerFunc { return h.Unblock }},
		{name: "delete", method: http.MethodDelete, path: "/users", mount: func(h *handlers.UsersHandler) gin.HandlerFunc { return h.Delete }},
	}

	bodies := []struct {
		name string
		body string
	}{
		{name: "missing userIds", body: `{}`},
		{name: "empty array", body: `{"userIds":[]}`},
		{name: "not an array", body: `{"userIds":"abc"}`},
		{name: "null", body: `{"userIds":null}`},
	}

	for _, ep := range endpoints {
		for _, b := range bodies {
			t.Run(ep.name+"/"+b.name, func(t *testing.T) {
				h := handlers.NewUsersHandler(&fakeAdmin{}, testLogger())
				r := setupRouter(ep.method, ep.path, ep.mount(h))

				w := doJSON(r, ep.method, ep.path, b.body)

				if w.Code != http.StatusBadRequest {
					t.Errorf("status = %d, want 400, body=%s", w.Code, w.Body.String())
				}
			})
		}
	}
}

func TestBulkBlockIgnoresUnknownIDs(t *testing.T) {
	idA := uuid.NewString()
	idGone := uuid.NewString()

	admin := &fakeAdmin{
		setStatusFn: func(_ context.Context, ids []string, status user.Status) ([]user.User, error) {
			if len(ids) != 2 {
				t.Errorf("store received %d ids, want 2", len(ids))
			}
			if status != user.StatusBlocked {
				t.Errorf("status = %q, want blocked", status)
			}
			// only idA exists
			return []user.User{{ID: idA, Name: "Alice", Status: user.StatusBlocked}}, nil
		},
	}

	h := handlers.NewUsersHandler(admin, testLogger())
	r := setupRouter(http.MethodPatch, "/users/block", h.Block)

	body, _ := json.Marshal(gin.H{"userIds": []string{idA, idGone}})

	w := doJSON(r, http.MethodPatch, "/users/block", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		UpdatedUsers []user.User `json:"updatedUsers"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(resp.UpdatedUsers) != 1 || resp.UpdatedUsers[0].ID != idA {
		t.Errorf("updatedUsers = %+v, want just %s", resp.UpdatedUsers, idA)
	}

	if resp.UpdatedUsers[0].Status != user.StatusBlocked {
		t.Errorf("status = %q, want blocked", resp.UpdatedUsers[0].Status)
	}
}

func TestBulkUnblockSetsActive(t *testing.T) {
	var gotStatus user.Status

	admin := &fakeAdmin{
		setStatusFn: func(_ context.Context, ids []string, status user.Status) ([]user.User, error) {
			gotStatus = status
			return []user.User{{ID: ids[0], Status: status}}, nil
		},
	}

	h := handlers.NewUsersHandler(admin, testLogger())
	r := setupRouter(http.MethodPatch, "/users/unblock", h.Unblock)

	body, _ := json.Marshal(gin.H{"userIds": []string{uuid.NewString()}})

	w := doJSON(r, http.MethodPatch, "/users/unblock", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}

	if gotStatus != user.StatusActive {
		t.Errorf("store received status %q, want active", gotStatus)
	}
}

func TestBulkDelete(t *testing.T) {
	idA := uuid.NewString()

	t.Run("returns removed records", func(t *testing.T) {
		admin := &fakeAdmin{
			deleteFn: func(_ context.Context, ids []string) ([]user.DeletedUser, error) {
				return []user.DeletedUser{{ID: idA, Name: "Alice", Email: "alice@example.com"}}, nil
			},
		}

		h := handlers.NewUsersHandler(admin, testLogger())
		r := setupRouter(http.MethodDelete, "/users", h.Delete)

		body, _ := json.Marshal(gin.H{"userIds": []string{idA}})
		w := doJSON(r, http.MethodDelete, "/users", string(body))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			DeletedUsers []user.DeletedUser `json:"deletedUsers"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if len(resp.DeletedUsers) != 1 || resp.DeletedUsers[0].ID != idA {
			t.Errorf("deletedUsers = %+v", resp.DeletedUsers)
		}
	})

	t.Run("re-deleting is not an error", func(t *testing.T) {
		admin := &fakeAdmin{
			deleteFn: func(_ context.Context, ids []string) ([]user.DeletedUser, error) {
				return []user.DeletedUser{}, nil
			},
		}

		h := handlers.NewUsersHandler(admin, testLogger())
		r := setupRouter(http.MethodDelete, "/users", h.Delete)

		body, _ := json.Marshal(gin.H{"userIds": []string{idA}})
		w := doJSON(r, http.MethodDelete, "/users", string(body))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			DeletedUsers []user.DeletedUser `json:"deletedUsers"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if len(resp.DeletedUsers) != 0 {
			t.Errorf("deletedUsers = %+v, want empty", resp.DeletedUsers)
		}
	})
}
