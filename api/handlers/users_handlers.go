package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type UsersHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	sessions *auth.SessionManager
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewUsersHandler(cfg *config.AppConfig, users store.UsersStore, sessions *auth.SessionManager, recorder *audit.Recorder, logger *utils.Logger) *UsersHandler {
	return &UsersHandler{cfg: cfg, users: users, sessions: sessions, recorder: recorder, logger: logger}
}

type userPayload struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Active    *bool    `json:"active"`
	Roles     []string `json:"roles"`
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	filter := store.UserFilter{
		Query:    q.Get("search"),
		Role:     q.Get("role"),
		Active:   parseBoolParam(q.Get("active")),
		Page:     page,
		PageSize: pageSize,
	}
	items, total, err := h.users.List(r.Context(), filter)
	if err != nil {
		failServer(w)
		return
	}
	respondList(w, items, total, page, pageSize)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if user == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	roles, err := h.users.RolesForUser(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, store.UserWithRoles{User: *user, Roles: roles})
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(payload.Email)
	if err := utils.ValidateUsername(payload.Username); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateEmail(payload.Email); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePassword(payload.Password); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	ph, err := auth.HashPassword(payload.Password, h.cfg.Pepper)
	if err != nil {
		failServer(w)
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	user := &store.User{
		Username:     payload.Username,
		Email:        payload.Email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Active:       active,
	}
	roles := payload.Roles
	if roles == nil {
		roles = []string{}
	}
	id, err := h.users.Create(r.Context(), user, roles)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "users",
		RecordID:    &id,
		Description: "created user " + user.Username,
		NewValue:    store.UserWithRoles{User: *user, Roles: roles},
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, store.UserWithRoles{User: *user, Roles: roles})
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	existing, err := h.users.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	before, err := h.users.RolesForUser(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	old := store.UserWithRoles{User: *existing, Roles: before}

	next := *existing
	if payload.Username != "" {
		if err := utils.ValidateUsername(strings.TrimSpace(payload.Username)); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Username = strings.TrimSpace(payload.Username)
	}
	if payload.Email != "" {
		if err := utils.ValidateEmail(strings.TrimSpace(payload.Email)); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Email = strings.TrimSpace(payload.Email)
	}
	next.FirstName = payload.FirstName
	next.LastName = payload.LastName
	if payload.Active != nil {
		next.Active = *payload.Active
	}
	if payload.Password != "" {
		if err := utils.ValidatePassword(payload.Password); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		ph, err := auth.HashPassword(payload.Password, h.cfg.Pepper)
		if err != nil {
			failServer(w)
			return
		}
		next.PasswordHash = ph.Hash
		next.Salt = ph.Salt
	}
	if err := h.users.Update(r.Context(), &next, payload.Roles); err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		failServer(w)
		return
	}
	// A deactivated user must not keep live sessions.
	if payload.Active != nil && !*payload.Active && existing.Active {
		_ = h.sessions.RevokeAllForUser(r.Context(), id, actorName(actor))
	}
	after, err := h.users.RolesForUser(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "users",
		RecordID:    &id,
		Description: "updated user " + next.Username,
		OldValue:    old,
		NewValue:    store.UserWithRoles{User: next, Roles: after},
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, store.UserWithRoles{User: next, Roles: after})
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if actor != nil && actor.UserID == id {
		fail(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	existing, err := h.users.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	_ = h.sessions.RevokeAllForUser(r.Context(), id, actorName(actor))
	if err := h.users.Delete(r.Context(), id); err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "users",
		RecordID:    &id,
		Description: "deleted user " + existing.Username,
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "User deleted")
}

func actorID(id *auth.Identity) *int64 {
	if id == nil {
		return nil
	}
	return &id.UserID
}

func actorName(id *auth.Identity) string {
	if id == nil {
		return ""
	}
	return id.Username
}
