package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/store"
)

type usersFixture struct {
	handler  *UsersHandler
	users    *fakeUsersStore
	sessions *fakeSessionsStore
	audits   *fakeAuditStore
}

func newUsersFixture() *usersFixture {
	cfg := &config.AppConfig{Pepper: testPepper}
	users := newFakeUsersStore()
	sessions := &fakeSessionsStore{}
	audits := &fakeAuditStore{}
	manager := auth.NewSessionManager(sessions, time.Hour, nil)
	h := NewUsersHandler(cfg, users, manager, audit.NewRecorder(audits, nil), nil)
	return &usersFixture{handler: h, users: users, sessions: sessions, audits: audits}
}

func TestUsersCreateAuditsSanitizedSnapshot(t *testing.T) {
	fx := newUsersFixture()
	body := `{"username":"dave","email":"dave@example.com","password":"longenough","roles":["viewer"]}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)), 1, "admin", "users.create")
	rr := httptest.NewRecorder()
	fx.handler.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	created, _ := fx.users.FindByUsername(context.Background(), "dave")
	if created == nil {
		t.Fatalf("user not stored")
	}
	if created.PasswordHash == "" || created.PasswordHash == "longenough" {
		t.Fatalf("password must be stored hashed")
	}

	if len(fx.audits.rows) != 1 {
		t.Fatalf("audit rows = %d, want exactly one", len(fx.audits.rows))
	}
	row := fx.audits.last()
	if row.Action != audit.ActionCreate || row.Module != "users" {
		t.Fatalf("audit row = %+v", row)
	}
	if strings.Contains(row.NewValue, created.PasswordHash) || strings.Contains(row.NewValue, created.Salt) {
		t.Fatalf("audit snapshot leaked credentials: %s", row.NewValue)
	}
	if strings.Contains(rr.Body.String(), created.PasswordHash) {
		t.Fatalf("response leaked the password hash")
	}
}

func TestUsersCreateRejectsDuplicate(t *testing.T) {
	fx := newUsersFixture()
	fx.users.add(&store.User{Username: "dave", Email: "dave@example.com", Active: true}, nil)

	body := `{"username":"dave","email":"other@example.com","password":"longenough"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)), 1, "admin")
	rr := httptest.NewRecorder()
	fx.handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Username or email already exists" {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestUsersDeactivationRevokesSessions(t *testing.T) {
	fx := newUsersFixture()
	target := fx.users.add(&store.User{Username: "erin", Email: "erin@example.com", Active: true}, []string{"viewer"})
	fx.sessions.Create(context.Background(), &store.SessionRecord{
		UserID: target.ID, Token: "tok-erin", ExpiresAt: time.Now().Add(time.Hour),
	})

	body := `{"active":false}`
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/api/users/1", strings.NewReader(body)), 9, "admin")
	rr := httptest.NewRecorder()
	fx.handler.Update(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	if n := fx.sessions.activeCount(target.ID); n != 0 {
		t.Fatalf("deactivated user still has %d live sessions", n)
	}
	if row := fx.audits.last(); row == nil || row.Action != audit.ActionUpdate {
		t.Fatalf("expected UPDATE audit row")
	}
}

func TestUsersCannotDeleteSelf(t *testing.T) {
	fx := newUsersFixture()
	self := fx.users.add(&store.User{Username: "admin", Email: "admin@localhost", Active: true}, []string{"admin"})

	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/api/users/1", nil), self.ID, "admin")
	rr := httptest.NewRecorder()
	fx.handler.Delete(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Cannot delete your own account" {
		t.Fatalf("error = %q", env.Error)
	}
	if _, ok := fx.users.users[self.ID]; !ok {
		t.Fatalf("account must survive")
	}
}

func TestUsersDeleteRevokesSessions(t *testing.T) {
	fx := newUsersFixture()
	admin := fx.users.add(&store.User{Username: "admin", Email: "admin@localhost", Active: true}, []string{"admin"})
	target := fx.users.add(&store.User{Username: "frank", Email: "frank@example.com", Active: true}, nil)
	fx.sessions.Create(context.Background(), &store.SessionRecord{
		UserID: target.ID, Token: "tok-frank", ExpiresAt: time.Now().Add(time.Hour),
	})

	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/api/users/2", nil), admin.ID, "admin")
	rr := httptest.NewRecorder()
	fx.handler.Delete(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	if _, ok := fx.users.users[target.ID]; ok {
		t.Fatalf("user not deleted")
	}
	if n := fx.sessions.activeCount(target.ID); n != 0 {
		t.Fatalf("deleted user still has live sessions")
	}
	if row := fx.audits.last(); row == nil || row.Action != audit.ActionDelete {
		t.Fatalf("expected DELETE audit row")
	}
}
