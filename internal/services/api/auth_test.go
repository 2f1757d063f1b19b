package api

import (
	"net/http/httptest"
	"testing"
)

func TestIdentityFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantErr bool
		check   func(t *testing.T, id *Identity)
	}{
		{
			name:    "full identity",
			headers: map[string]string{"X-Org-ID": "3", "X-User-ID": "42", "X-User-Role": "mesero"},
			check: func(t *testing.T, id *Identity) {
				if id.OrgID != 3 {
					t.Errorf("OrgID = %d, want 3", id.OrgID)
				}
				if id.UserID == nil || *id.UserID != 42 {
					t.Errorf("UserID = %v, want 42", id.UserID)
				}
				if id.Role != RoleMesero {
					t.Errorf("Role = %s, want mesero", id.Role)
				}
			},
		},
		{
			name:    "org only",
			headers: map[string]string{"X-Org-ID": "1"},
			check: func(t *testing.T, id *Identity) {
				if id.UserID != nil {
					t.Errorf("UserID = %v, want nil", id.UserID)
				}
			},
		},
		{name: "missing org", headers: map[string]string{"X-User-Role": "admin"}, wantErr: true},
		{name: "non-numeric org", headers: map[string]string{"X-Org-ID": "abc"}, wantErr: true},
		{name: "negative org", headers: map[string]string{"X-Org-ID": "-1"}, wantErr: true},
		{name: "bad user id", headers: map[string]string{"X-Org-ID": "1", "X-User-ID": "zero"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/orders", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			id, err := identityFromRequest(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, id)
			}
		})
	}
}

func TestIdentityRequire(t *testing.T) {
	mesero := &Identity{OrgID: 1, Role: RoleMesero}
	if err := mesero.Require(RoleMesero, RoleCajero); err != nil {
		t.Errorf("mesero rejected from mesero route: %v", err)
	}
	if err := mesero.Require(RoleCajero); err == nil {
		t.Error("mesero allowed on cajero-only route")
	}

	admin := &Identity{OrgID: 1, Role: RoleAdmin}
	if err := admin.Require(RoleCocina); err != nil {
		t.Errorf("admin rejected: %v", err)
	}

	anonymous := &Identity{OrgID: 1}
	if err := anonymous.Require(RoleMesero); err == nil {
		t.Error("empty role allowed on restricted route")
	}
}
