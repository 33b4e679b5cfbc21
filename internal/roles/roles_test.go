package roles

import (
	"testing"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
)

func ptr(v int64) *int64 { return &v }

func TestIsMatchesExactSubsite(t *testing.T) {
	held := []models.Role{{Name: enums.RoleAdmin, SubsiteID: ptr(2)}}

	if !Is(held, enums.RoleAdmin, ptr(2), ptr(2)) {
		t.Fatal("expected admin in subsite 2")
	}
	if Is(held, enums.RoleAdmin, ptr(3), ptr(3)) {
		t.Fatal("admin in subsite 2 must not match subsite 3")
	}
	if Is(held, enums.RoleAdmin, nil, nil) {
		t.Fatal("scoped role must not match the main site")
	}
}

func TestIsNilSubsiteMatchesOnlyNil(t *testing.T) {
	held := []models.Role{{Name: "curator"}}
	if !Is(held, "curator", nil, nil) {
		t.Fatal("expected unscoped role to match nil subsite")
	}
	if Is(held, "curator", ptr(1), ptr(1)) {
		t.Fatal("unscoped role must not match a subsite")
	}
}

func TestIsHierarchy(t *testing.T) {
	tests := []struct {
		name    string
		held    []models.Role
		role    string
		subsite *int64
		want    bool
	}{
		{"superAdmin implies admin", []models.Role{{Name: enums.RoleSuperAdmin}}, enums.RoleAdmin, nil, true},
		{"superAdmin scope is respected", []models.Role{{Name: enums.RoleSuperAdmin, SubsiteID: ptr(5)}}, enums.RoleAdmin, nil, false},
		{"saasAdmin implies superAdmin anywhere", []models.Role{{Name: enums.RoleSaasAdmin}}, enums.RoleSuperAdmin, ptr(9), true},
		{"saasSuperAdmin implies admin", []models.Role{{Name: enums.RoleSaasSuperAdmin}}, enums.RoleAdmin, ptr(4), true},
		{"admin does not imply superAdmin", []models.Role{{Name: enums.RoleAdmin}}, enums.RoleSuperAdmin, nil, false},
		{"saas role stored with subsite is ignored", []models.Role{{Name: enums.RoleSaasAdmin, SubsiteID: ptr(1)}}, enums.RoleSaasAdmin, ptr(1), false},
		{"case-insensitive builtin", []models.Role{{Name: enums.RoleSuperAdmin}}, "SUPERADMIN", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.held, tt.role, tt.subsite, tt.subsite); got != tt.want {
				t.Fatalf("Is(%s) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestIsChecksParentsInCurrentSubsite(t *testing.T) {
	mainSuperAdmin := []models.Role{{Name: enums.RoleSuperAdmin}}

	if !Is(mainSuperAdmin, enums.RoleAdmin, ptr(5), nil) {
		t.Fatal("main-site superAdmin should hold admin when asked from the main site")
	}
	if Is(mainSuperAdmin, enums.RoleAdmin, ptr(5), ptr(5)) {
		t.Fatal("main-site superAdmin must not hold admin when served from subsite 5")
	}

	scopedSuperAdmin := []models.Role{{Name: enums.RoleSuperAdmin, SubsiteID: ptr(5)}}
	if Is(scopedSuperAdmin, enums.RoleAdmin, ptr(5), nil) {
		t.Fatal("superAdmin of subsite 5 is not consulted from the main site")
	}
	if !Is(scopedSuperAdmin, enums.RoleAdmin, nil, ptr(5)) {
		t.Fatal("superAdmin of the current subsite implies admin")
	}
}

func TestScopeFor(t *testing.T) {
	if ScopeFor(enums.RoleSaasSuperAdmin, ptr(3)) != nil {
		t.Fatal("global roles are stored without subsite")
	}
	if got := ScopeFor(enums.RoleAdmin, ptr(3)); got == nil || *got != 3 {
		t.Fatalf("expected subsite 3, got %v", got)
	}
}

func TestFind(t *testing.T) {
	held := []models.Role{{Name: "a"}, {Name: "b", SubsiteID: ptr(1)}, {Name: "b"}}
	if idx := Find(held, "b", nil); idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}
	if idx := Find(held, "c", nil); idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
}
