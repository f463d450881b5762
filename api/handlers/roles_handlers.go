package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/rbac"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type RolesHandler struct {
	roles    store.RolesStore
	perms    store.PermissionsStore
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewRolesHandler(roles store.RolesStore, perms store.PermissionsStore, recorder *audit.Recorder, logger *utils.Logger) *RolesHandler {
	return &RolesHandler{roles: roles, perms: perms, recorder: recorder, logger: logger}
}

type rolePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, roles)
}

// Permissions returns the closed catalog so admin UIs can render role
// editors.
func (h *RolesHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.perms.List(r.Context())
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, perms)
}

func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	role, err := h.roles.FindByID(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if role == nil {
		fail(w, http.StatusNotFound, "Role not found")
		return
	}
	respond(w, http.StatusOK, role)
}

func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload rolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		fail(w, http.StatusBadRequest, "Role name is required")
		return
	}
	valid, invalid := rbac.NormalizePermissionNames(payload.Permissions)
	if len(invalid) > 0 {
		fail(w, http.StatusBadRequest, "Unknown permissions: "+strings.Join(invalid, ", "))
		return
	}
	role := &store.Role{Name: payload.Name, Description: payload.Description, Permissions: valid}
	id, err := h.roles.Create(r.Context(), role)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Role name already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "roles",
		RecordID:    &id,
		Description: "created role " + role.Name,
		NewValue:    role,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, role)
}

func (h *RolesHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	existing, err := h.roles.FindByID(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Role not found")
		return
	}
	var payload rolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	next := *existing
	if name := strings.TrimSpace(payload.Name); name != "" {
		next.Name = name
	}
	next.Description = payload.Description
	// An omitted permissions field leaves the set unchanged; an explicit
	// empty list clears it.
	if payload.Permissions != nil {
		valid, invalid := rbac.NormalizePermissionNames(payload.Permissions)
		if len(invalid) > 0 {
			fail(w, http.StatusBadRequest, "Unknown permissions: "+strings.Join(invalid, ", "))
			return
		}
		next.Permissions = valid
	}
	if err := h.roles.Update(r.Context(), &next); err != nil {
		if errors.Is(err, store.ErrSystemRole) {
			fail(w, http.StatusBadRequest, "System roles cannot be renamed")
			return
		}
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Role name already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "roles",
		RecordID:    &id,
		Description: "updated role " + next.Name,
		OldValue:    existing,
		NewValue:    next,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, next)
}

func (h *RolesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	existing, err := h.roles.FindByID(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Role not found")
		return
	}
	if err := h.roles.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrSystemRole) {
			fail(w, http.StatusBadRequest, "System roles cannot be deleted")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "roles",
		RecordID:    &id,
		Description: "deleted role " + existing.Name,
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Role deleted")
}
