package http

import (
	"net/http"
	"strings"

	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
)

// Identity headers set by the API gateway after it authenticates the caller.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserPhone = "X-User-Phone"
)

// ExtractActor builds the acting user from gateway identity headers.
// Role defaults to "user" when absent; unknown roles are rejected.
func ExtractActor(r *http.Request) (*model.Actor, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return nil, apperrors.Forbidden("Missing user identity")
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		return nil, apperrors.Forbidden("Unknown user role")
	}

	return &model.Actor{
		ID:    id,
		Role:  role,
		Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Phone: strings.TrimSpace(r.Header.Get(HeaderUserPhone)),
	}, nil
}
