package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/termacl/termacl/internal/core"
	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/permission"
)

// TermPermissionsPayload is the term access fieldset as submitted by an
// administrator; the save has full replace semantics
type TermPermissionsPayload struct {
	UserIDs []int64 `json:"user_ids"`
	RoleIDs []int64 `json:"role_ids"`
}

// TermPermissionsView is what the GET endpoint returns
type TermPermissionsView struct {
	TermID  int64   `json:"term_id"`
	UserIDs []int64 `json:"user_ids"`
	RoleIDs []int64 `json:"role_ids"`
}

func termIDFromRequest(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid term id")
	}

	return id, nil
}

// GetTermPermissions returns a term's current allowed-user and allowed-role sets
func GetTermPermissions(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (interface{}, int, error) {
	termID, err := termIDFromRequest(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	userIDs, err := c.PermissionManager().AllowedUserIDs(ctx, termID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	roleIDs, err := c.PermissionManager().AllowedRoleIDs(ctx, termID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	view := TermPermissionsView{
		TermID:  termID,
		UserIDs: userIDs,
		RoleIDs: roleIDs,
	}

	return view, http.StatusOK, nil
}

// PutTermPermissions replaces a term's allowed sets, mirroring the host's
// term form submit; an unresolvable principal rejects the whole submission
func PutTermPermissions(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (interface{}, int, error) {
	termID, err := termIDFromRequest(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	payload := TermPermissionsPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, http.StatusBadRequest, errors.Wrap(err, "failed to decode payload")
	}

	err = c.OnTermFormSubmit(ctx, termID, payload.UserIDs, payload.RoleIDs)
	if err != nil {
		if errors.Cause(err) == permission.ErrUnresolvedPrincipal {
			return nil, http.StatusUnprocessableEntity, err
		}

		return nil, http.StatusInternalServerError, err
	}

	return nil, http.StatusOK, nil
}

// GetAccessCheck evaluates the current principal's access to an item
func GetAccessCheck(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (interface{}, int, error) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item"), 10, 64)
	if err != nil || itemID == 0 {
		return nil, http.StatusBadRequest, errors.New("invalid item id")
	}

	p, err := c.Identity().CurrentPrincipal(ctx)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}

	allowed, err := c.OnAccessCheck(ctx, itemID, access.OpView, p)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return map[string]bool{"allowed": allowed}, http.StatusOK, nil
}

// PostRebuild triggers the full grant reindex
func PostRebuild(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (interface{}, int, error) {
	if err := c.RebuildAll(ctx); err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return nil, http.StatusOK, nil
}
