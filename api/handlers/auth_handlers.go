package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	SessionTokenCookie = "sessionToken"
)

type AuthHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	perms    store.PermissionsStore
	tokens   *auth.TokenIssuer
	sessions *auth.SessionManager
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, perms store.PermissionsStore, tokens *auth.TokenIssuer, sessions *auth.SessionManager, recorder *audit.Recorder, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, perms: perms, tokens: tokens, sessions: sessions, recorder: recorder, logger: logger}
}

type loginResponse struct {
	User         *store.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	Permissions  []string    `json:"permissions"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		fail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.FindByUsername(r.Context(), creds.Username)
	if err != nil {
		failServer(w)
		return
	}
	if user == nil || !user.Active {
		h.recordLoginFailure(r, creds.Username)
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	stored, err := auth.ParsePasswordHash(user.PasswordHash, user.Salt)
	if err != nil {
		h.recordLoginFailure(r, creds.Username)
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(creds.Password, h.cfg.Pepper, stored)
	if err != nil || !ok {
		h.recordLoginFailure(r, creds.Username)
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	access, err := h.tokens.IssueAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	sess, err := h.sessions.Create(r.Context(), user.ID, clientAddr(r), r.UserAgent())
	if err != nil {
		failServer(w)
		return
	}
	perms, err := h.perms.ResolveForUser(r.Context(), user.ID)
	if err != nil {
		failServer(w)
		return
	}
	_ = h.users.SetLastLogin(r.Context(), user.ID, time.Now().UTC())

	h.setAuthCookies(w, access, refresh, sess.Token)
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:    &user.ID,
		Username:  user.Username,
		Action:    audit.ActionLogin,
		Module:    "auth",
		IP:        clientAddr(r),
		UserAgent: r.UserAgent(),
	})
	respond(w, http.StatusOK, loginResponse{User: user, AccessToken: access, RefreshToken: refresh, Permissions: perms})
}

func (h *AuthHandler) recordLoginFailure(r *http.Request, username string) {
	h.recorder.Record(r.Context(), audit.Entry{
		Username:  username,
		Action:    audit.ActionLoginFailed,
		Module:    "auth",
		IP:        clientAddr(r),
		UserAgent: r.UserAgent(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := currentIdentity(r)
	if id == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if c, err := r.Cookie(SessionTokenCookie); err == nil && c.Value != "" {
		_ = h.sessions.Revoke(r.Context(), c.Value, id.Username)
	}
	h.clearAuthCookies(w)
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:    &id.UserID,
		Username:  id.Username,
		Action:    audit.ActionLogout,
		Module:    "auth",
		IP:        clientAddr(r),
		UserAgent: r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := currentIdentity(r)
	if id == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.users.Get(r.Context(), id.UserID)
	if err != nil {
		failServer(w)
		return
	}
	if user == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	roles, err := h.users.RolesForUser(r.Context(), id.UserID)
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"user":        user,
		"roles":       roles,
		"permissions": id.Permissions.Names(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the token pair. It requires both a valid refresh JWT and a
// live session row: a revoked session blocks refresh no matter what signed
// tokens the client still holds.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := ""
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		refresh = strings.TrimSpace(body.RefreshToken)
	}
	if refresh == "" {
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			refresh = c.Value
		}
	}
	claims, err := h.tokens.Verify(refresh, auth.TokenTypeRefresh)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionToken := ""
	if c, err := r.Cookie(SessionTokenCookie); err == nil {
		sessionToken = c.Value
	}
	sess, err := h.sessions.Validate(r.Context(), sessionToken)
	if err != nil {
		failServer(w)
		return
	}
	if sess == nil || sess.UserID != claims.UserID() {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.users.Get(r.Context(), claims.UserID())
	if err != nil {
		failServer(w)
		return
	}
	if user == nil || !user.Active {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	access, err := h.tokens.IssueAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	newRefresh, err := h.tokens.IssueRefreshToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	newSess, err := h.sessions.Create(r.Context(), user.ID, clientAddr(r), r.UserAgent())
	if err != nil {
		failServer(w)
		return
	}
	_ = h.sessions.Revoke(r.Context(), sess.Token, user.Username)

	h.setAuthCookies(w, access, newRefresh, newSess.Token)
	respond(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": newRefresh,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := currentIdentity(r)
	if id == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		fail(w, http.StatusBadRequest, "Passwords do not match")
		return
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.Get(r.Context(), id.UserID)
	if err != nil {
		failServer(w)
		return
	}
	if user == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	stored, err := auth.ParsePasswordHash(user.PasswordHash, user.Salt)
	if err != nil {
		failServer(w)
		return
	}
	ok, err := auth.VerifyPassword(req.CurrentPassword, h.cfg.Pepper, stored)
	if err != nil || !ok {
		fail(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	ph, err := auth.HashPassword(req.NewPassword, h.cfg.Pepper)
	if err != nil {
		failServer(w)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, ph.Hash, ph.Salt); err != nil {
		failServer(w)
		return
	}
	// Every other device is logged out; this client gets a fresh pair.
	_ = h.sessions.RevokeAllForUser(r.Context(), user.ID, user.Username)
	access, err := h.tokens.IssueAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(user.ID, user.Username, user.Email)
	if err != nil {
		failServer(w)
		return
	}
	sess, err := h.sessions.Create(r.Context(), user.ID, clientAddr(r), r.UserAgent())
	if err != nil {
		failServer(w)
		return
	}
	h.setAuthCookies(w, access, refresh, sess.Token)

	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      &user.ID,
		Username:    user.Username,
		Action:      audit.ActionUpdate,
		Module:      "auth",
		RecordID:    &user.ID,
		Description: "password changed",
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Password changed")
}

func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, access, refresh, session string) {
	secure := h.cfg != nil && h.cfg.Security.SecureCookies
	accessTTL := 15 * time.Minute
	refreshTTL := 7 * 24 * time.Hour
	if h.tokens != nil {
		accessTTL = h.tokens.AccessTTL()
		refreshTTL = h.tokens.RefreshTTL()
	}
	setCookie(w, AccessTokenCookie, access, accessTTL, secure)
	setCookie(w, RefreshTokenCookie, refresh, refreshTTL, secure)
	setCookie(w, SessionTokenCookie, session, refreshTTL, secure)
}

func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	secure := h.cfg != nil && h.cfg.Security.SecureCookies
	setCookie(w, AccessTokenCookie, "", -time.Second, secure)
	setCookie(w, RefreshTokenCookie, "", -time.Second, secure)
	setCookie(w, SessionTokenCookie, "", -time.Second, secure)
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
