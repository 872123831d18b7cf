package http

import (
	"net/http/httptest"
	"testing"

	"turfbook/pkg/model"
)

func TestExtractActor(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		wantRole model.Role
		wantErr  bool
	}{
		{
			name: "user with explicit role",
			headers: map[string]string{
				HeaderUserID:   "665f1f77bcf86cd799439011",
				HeaderUserRole: "user",
			},
			wantRole: model.RoleUser,
		},
		{
			name: "admin role",
			headers: map[string]string{
				HeaderUserID:   "665f1f77bcf86cd799439033",
				HeaderUserRole: "admin",
			},
			wantRole: model.RoleAdmin,
		},
		{
			name: "role case insensitive",
			headers: map[string]string{
				HeaderUserID:   "665f1f77bcf86cd799439033",
				HeaderUserRole: "Admin",
			},
			wantRole: model.RoleAdmin,
		},
		{
			name: "missing role defaults to user",
			headers: map[string]string{
				HeaderUserID: "665f1f77bcf86cd799439011",
			},
			wantRole: model.RoleUser,
		},
		{
			name:    "missing id",
			headers: map[string]string{},
			wantErr: true,
		},
		{
			name: "unknown role",
			headers: map[string]string{
				HeaderUserID:   "665f1f77bcf86cd799439011",
				HeaderUserRole: "superuser",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/bookings", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			actor, err := ExtractActor(r)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actor.Role != tt.wantRole {
				t.Errorf("expected role %s, got %s", tt.wantRole, actor.Role)
			}
		})
	}
}

func TestExtractActor_ProfileFields(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/bookings", nil)
	r.Header.Set(HeaderUserID, "665f1f77bcf86cd799439011")
	r.Header.Set(HeaderUserName, "  Asha Rao ")
	r.Header.Set(HeaderUserEmail, "asha@example.com")
	r.Header.Set(HeaderUserPhone, "+919876543210")

	actor, err := ExtractActor(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.Name != "Asha Rao" {
		t.Errorf("expected trimmed name, got %q", actor.Name)
	}
	if actor.Email != "asha@example.com" || actor.Phone != "+919876543210" {
		t.Errorf("unexpected contact fields: %q %q", actor.Email, actor.Phone)
	}
}
