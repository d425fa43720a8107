package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/notification"
	"github.com/diewo77/go-church/internal/permission"
	"github.com/diewo77/go-church/internal/settings"
	"github.com/diewo77/go-church/internal/store"
	"github.com/diewo77/go-church/internal/theme"
	"github.com/diewo77/go-church/internal/users"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	db            *gorm.DB
	resolver      *permission.Resolver
	settings      *SettingsHandler
	permissions   *PermissionHandler
	notifications *NotificationHandler
	roles         *AdminRoleHandler
	users         *AdminUserHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Role{}, &models.Permission{}, &models.Notification{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	docs := store.NewMemory()
	repo := permission.NewGormRoleRepository(db)
	resolver := permission.NewResolver(repo, time.Hour, quietLogger())
	if err := resolver.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	palette := theme.NewPalette()
	svc := settings.NewService(docs, "church", palette, quietLogger())
	svc.Init(context.Background())

	prefs := notification.NewPreferencesService(docs, quietLogger())
	notifications, inboxes := notification.NewTracked(db, prefs, time.Hour, time.Hour, quietLogger())

	return &env{
		db:            db,
		resolver:      resolver,
		settings:      NewSettingsHandler(svc, palette),
		permissions:   NewPermissionHandler(resolver),
		notifications: NewNotificationHandler(notifications, prefs, inboxes, 50),
		roles:         NewAdminRoleHandler(permission.NewAdmin(repo, resolver, quietLogger())),
		users:         NewAdminUserHandler(users.NewService(db, resolver, quietLogger()), resolver),
	}
}

func (e *env) user(t *testing.T, email, role string) uint {
	t.Helper()
	u := models.User{Email: email, Name: email, Role: role, Status: models.UserStatusActive}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// call runs h with an optional identity and decodes a JSON body into out.
func call(t *testing.T, h http.HandlerFunc, method, target, body string, id *auth.Identity, out any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	mux := http.NewServeMux()
	pattern := method + " " + strings.SplitN(target, "?", 2)[0]
	if strings.Contains(target, "/x/") {
		pattern = method + " /x/{id}/{key}"
	}
	mux.HandleFunc(pattern, h)

	req := httptest.NewRequest(method, target, r)
	ctx := i18n.WithLang(req.Context(), i18n.LangPT)
	if id != nil {
		ctx = auth.WithIdentity(ctx, *id)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req.WithContext(ctx))
	if out != nil && rec.Body.Len() > 0 {
		if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec
}

// pathTarget routes id and key path values through the test mux pattern.
func pathTarget(id, key string) string {
	return "/x/" + id + "/" + key
}

func TestSettingsHandler_UpdateAndTheme(t *testing.T) {
	e := newEnv(t)
	admin := &auth.Identity{UserID: 1, Role: permission.RoleAdmin, Status: auth.StatusActive}

	var got settings.Settings
	rec := call(t, e.settings.Update, "PATCH", "/api/settings", `{"primaryColor":"#336699","about":{"mission":"Servir"}}`, admin, &got)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.PrimaryColor != "#336699" || got.ChurchName != "Minha Igreja" {
		t.Fatalf("unexpected settings: %+v", got)
	}

	var vars struct {
		Vars map[string]string `json:"vars"`
	}
	call(t, e.settings.Theme, "GET", "/api/theme", "", nil, &vars)
	if vars.Vars[theme.VarPrimary] != "#336699" {
		t.Fatalf("theme not propagated: %v", vars.Vars)
	}

	rec = call(t, e.settings.ThemeCSS, "GET", "/theme.css", "", nil, nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), ":root") {
		t.Fatalf("expected a :root rule, got %q", rec.Body.String())
	}
}

func TestSettingsHandler_RejectsInvalidColor(t *testing.T) {
	e := newEnv(t)
	admin := &auth.Identity{UserID: 1, Role: permission.RoleAdmin, Status: auth.StatusActive}

	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	rec := call(t, e.settings.Update, "PATCH", "/api/settings", `{"primaryColor":"blue"}`, admin, &resp)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Details["primaryColor"] != "invalid_color" {
		t.Fatalf("expected a primaryColor violation, got %v", resp.Details)
	}

	var current settings.Settings
	call(t, e.settings.Get, "GET", "/api/settings", "", admin, &current)
	if current.PrimaryColor != settings.Defaults().PrimaryColor {
		t.Fatalf("rejected update must not change settings, got %q", current.PrimaryColor)
	}
}

func TestPermissionHandler(t *testing.T) {
	e := newEnv(t)
	member := &auth.Identity{UserID: 7, Role: permission.RoleMember, Status: auth.StatusActive}

	rec := call(t, e.permissions.Me, "GET", "/api/me/permissions", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}

	var me struct {
		Role      string                     `json:"role"`
		RoleLabel string                     `json:"role_label"`
		Matrix    map[string]map[string]bool `json:"matrix"`
	}
	call(t, e.permissions.Me, "GET", "/api/me/permissions", "", member, &me)
	if me.RoleLabel != "Membro" {
		t.Fatalf("expected pt label, got %q", me.RoleLabel)
	}
	if !me.Matrix["events"]["view"] || me.Matrix["settings"]["update"] {
		t.Fatalf("unexpected matrix: %v", me.Matrix)
	}

	cases := []struct {
		query   string
		status  int
		allowed bool
	}{
		{"module=forum&action=create", http.StatusOK, true},
		{"module=finance&action=view", http.StatusOK, false},
		{"module=bogus&action=view", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var resp struct {
				Allowed bool `json:"allowed"`
			}
			rec := call(t, e.permissions.Check, "GET", "/api/permissions/check?"+tc.query, "", member, &resp)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if resp.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%v", tc.allowed)
			}
		})
	}
}

func TestNotificationHandler_Lifecycle(t *testing.T) {
	e := newEnv(t)
	sender := e.user(t, "pastor@example.com", permission.RolePastor)
	reader := e.user(t, "member@example.com", permission.RoleMember)
	pastor := &auth.Identity{UserID: sender, Role: permission.RolePastor, Status: auth.StatusActive}
	member := &auth.Identity{UserID: reader, Role: permission.RoleMember, Status: auth.StatusActive}

	var d notification.Delivery
	rec := call(t, e.notifications.CreateCustom, "POST", "/api/admin/notifications",
		fmt.Sprintf(`{"title":"Culto","message":"Domingo 10h","type":"announcement","user_ids":[%d]}`, reader), pastor, &d)
	if rec.Code != http.StatusCreated || d.Created != 1 {
		t.Fatalf("expected one delivery, got %d %+v", rec.Code, d)
	}

	var list struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int64                 `json:"unread"`
	}
	call(t, e.notifications.List, "GET", "/api/notifications", "", member, &list)
	if len(list.Notifications) != 1 || list.Unread != 1 {
		t.Fatalf("expected one unread notification, got %d/%d", len(list.Notifications), list.Unread)
	}
	nid := list.Notifications[0].ID.String()

	rec = call(t, e.notifications.MarkRead, "POST", pathTarget(nid, "read"), "", member, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: %d %s", rec.Code, rec.Body.String())
	}
	var count struct {
		Unread int64 `json:"unread"`
	}
	call(t, e.notifications.UnreadCount, "GET", "/api/notifications/unread-count", "", member, &count)
	if count.Unread != 0 {
		t.Fatalf("expected optimistic decrement, got %d", count.Unread)
	}

	rec = call(t, e.notifications.MarkRead, "POST", pathTarget(nid, "read"), "", pastor, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("other users must not see the notification, got %d", rec.Code)
	}
	rec = call(t, e.notifications.Archive, "POST", pathTarget("not-a-uuid", "archive"), "", member, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", rec.Code)
	}

	rec = call(t, e.notifications.Logout, "POST", "/api/logout", "", member, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if _, ok := e.notifications.Inboxes.Get(reader); ok {
		t.Fatal("logout should close the inbox")
	}
}

func TestNotificationHandler_PreferencesSuppressDelivery(t *testing.T) {
	e := newEnv(t)
	reader := e.user(t, "member@example.com", permission.RoleMember)
	member := &auth.Identity{UserID: reader, Role: permission.RoleMember, Status: auth.StatusActive}
	pastor := &auth.Identity{UserID: 99, Role: permission.RolePastor, Status: auth.StatusActive}

	var prefs notification.Preferences
	rec := call(t, e.notifications.UpdatePreferences, "PATCH", "/api/me/notification-preferences",
		`{"types":{"announcement":false}}`, member, &prefs)
	if rec.Code != http.StatusOK {
		t.Fatalf("update preferences: %d %s", rec.Code, rec.Body.String())
	}
	if prefs.Types["announcement"] || !prefs.Channels.Email {
		t.Fatalf("unexpected merged preferences: %+v", prefs)
	}

	var d notification.Delivery
	call(t, e.notifications.CreateCustom, "POST", "/api/admin/notifications",
		fmt.Sprintf(`{"title":"Aviso","type":"announcement","user_ids":[%d]}`, reader), pastor, &d)
	if d.Created != 0 || d.Suppressed != 1 {
		t.Fatalf("expected suppression, got %+v", d)
	}

	rec = call(t, e.notifications.CreateCustom, "POST", "/api/admin/notifications",
		`{"title":"Aviso","user_ids":[12345]}`, pastor, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without recipients, got %d", rec.Code)
	}
}

func TestAdminRoleHandler(t *testing.T) {
	e := newEnv(t)

	rec := call(t, e.roles.Create, "POST", "/api/admin/roles",
		`{"key":"youth","display_name":"Jovens","permissions":["events:view","forum:manage"]}`, nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	rec = call(t, e.roles.Create, "POST", "/api/admin/roles",
		`{"key":"youth","display_name":"Jovens"}`, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate, got %d", rec.Code)
	}

	var bad struct {
		Details map[string]string `json:"details"`
	}
	rec = call(t, e.roles.Create, "POST", "/api/admin/roles",
		`{"key":"choir","display_name":"Coral","permissions":["*:view"]}`, nil, &bad)
	if rec.Code != http.StatusBadRequest || bad.Details["permissions[0]"] == "" {
		t.Fatalf("expected a permission violation, got %d %v", rec.Code, bad.Details)
	}

	e.user(t, "jovem@example.com", "youth")
	rec = call(t, e.roles.Delete, "DELETE", pathTarget("0", "youth"), "", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an assigned role, got %d", rec.Code)
	}
	rec = call(t, e.roles.Delete, "DELETE", pathTarget("0", "missing"), "", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminUserHandler_ChangeRole(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "member@example.com", permission.RoleMember)
	target := pathTarget(fmt.Sprint(uid), "role")

	rec := call(t, e.users.ChangeRole, "PUT", target, `{"role":"nonexistent"}`, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown role, got %d", rec.Code)
	}

	var u models.User
	rec = call(t, e.users.ChangeRole, "PUT", target, `{"role":"leader"}`, nil, &u)
	if rec.Code != http.StatusOK || u.Role != permission.RoleLeader {
		t.Fatalf("change role: %d %+v", rec.Code, u)
	}

	rec = call(t, e.users.ChangeRole, "PUT", pathTarget("abc", "role"), `{"role":"leader"}`, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", rec.Code)
	}
	rec = call(t, e.users.ChangeRole, "PUT", pathTarget("9999", "role"), `{"role":"leader"}`, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var list struct {
		Users []userView `json:"users"`
	}
	call(t, e.users.List, "GET", "/api/admin/users?role=leader", "", nil, &list)
	if len(list.Users) != 1 || list.Users[0].RoleLabel == "" {
		t.Fatalf("unexpected listing: %+v", list.Users)
	}
}

func TestAdminUserHandler_ChangesApplyToIssuedTokens(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "pastor@example.com", permission.RolePastor)

	verifier := auth.NewVerifier("test-secret", "go-church")
	verifier.SetIdentityResolver(e.users.Users.Identity)
	token, err := verifier.Issue(auth.Identity{UserID: uid, Role: permission.RolePastor, Status: auth.StatusActive}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	protected := verifier.Middleware(e.resolver.RequirePermission(gate.ModuleSettings, gate.ActionUpdate)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })))
	patchSettings := func() int {
		req := httptest.NewRequest("PATCH", "/api/settings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := patchSettings(); code != http.StatusNoContent {
		t.Fatalf("expected active pastor to pass, got %d", code)
	}

	target := pathTarget(fmt.Sprint(uid), "status")
	if rec := call(t, e.users.ChangeStatus, "PUT", target, `{"status":"inactive"}`, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("change status: %d %s", rec.Code, rec.Body.String())
	}
	if code := patchSettings(); code != http.StatusForbidden {
		t.Fatalf("inactive account kept access with its old token, got %d", code)
	}

	call(t, e.users.ChangeStatus, "PUT", target, `{"status":"active"}`, nil, nil)
	if code := patchSettings(); code != http.StatusNoContent {
		t.Fatalf("reactivated account should pass, got %d", code)
	}
	if rec := call(t, e.users.ChangeRole, "PUT", pathTarget(fmt.Sprint(uid), "role"), `{"role":"member"}`, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("change role: %d", rec.Code)
	}
	if code := patchSettings(); code != http.StatusForbidden {
		t.Fatalf("demoted account kept pastor permissions, got %d", code)
	}
}
