package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("editors", "/admin/content/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"editors"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/content/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/content/42", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("editors", "/admin/campaigns", "GET"); err != nil {
		t.Fatalf("grant editors policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("auditors", "/admin/analytics/sessions", "GET"); err != nil {
		t.Fatalf("grant auditors policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"editors"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:editors" {
		t.Fatalf("roles want [role:editors], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"auditors"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:auditors" {
		t.Fatalf("roles want [role:auditors], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/campaigns", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/analytics/sessions", "GET")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/campaigns/:id", want: "/admin/campaigns/:id"},
		{in: "/admin/aliases/:id", want: "/admin/aliases/:id"},
		{in: "admin/campaigns", want: "/admin/campaigns"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor":  true,
		"role:content_editor":    true,
		"role:campaign_operator": true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{"campaign_operator"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(3, "/admin/analytics/overview", "GET")
	if err != nil {
		t.Fatalf("enforce inherited readonly failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected inherited readonly permission")
	}

	allow, err = svc.EnforceAdmin(3, "/admin/content/7", "PUT")
	if err != nil {
		t.Fatalf("enforce readonly write failed: %v", err)
	}
	if allow {
		t.Fatalf("expected campaign operator to be denied content writes")
	}

	allow, err = svc.EnforceAdmin(3, "/admin/campaigns/7/send", "POST")
	if err != nil {
		t.Fatalf("enforce campaign send failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected campaign operator to send campaigns")
	}
}

func TestRoleValidationErrors(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.EnsureRole("  "); !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("empty role want ErrRoleRequired, got %v", err)
	}
	if _, err := svc.EnsureRole("__anchor__"); !errors.Is(err, ErrRoleReserved) {
		t.Fatalf("anchor role want ErrRoleReserved, got %v", err)
	}
	if err := svc.GrantRolePolicy("editors", "/admin/content", " "); !errors.Is(err, ErrActionRequired) {
		t.Fatalf("blank action want ErrActionRequired, got %v", err)
	}
	if err := svc.SetAdminRoles(0, []string{"editors"}); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("zero admin want ErrAdminRequired, got %v", err)
	}
	var nilSvc *Service
	if _, err := nilSvc.EnforceAdmin(1, "/admin", "GET"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil service want ErrUnavailable, got %v", err)
	}
}

func TestAdminPoliciesIncludeInheritedRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if err := svc.SetAdminRoles(5, []string{"content_editor"}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}
	policies, err := svc.GetAdminPolicies(5)
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	var hasReadonly, hasContent bool
	for _, policy := range policies {
		if policy.Subject == "role:readonly_auditor" && policy.Object == "/admin/*" {
			hasReadonly = true
		}
		if policy.Subject == "role:content_editor" && policy.Object == "/admin/content/:id" {
			hasContent = true
		}
	}
	if !hasReadonly || !hasContent {
		t.Fatalf("expected inherited and direct policies, got %+v", policies)
	}

	if err := svc.DeleteRole("content_editor"); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(5)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("deleted role should be unlinked, got %v", roles)
	}
}
