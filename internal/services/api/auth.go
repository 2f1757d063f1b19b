package api

import (
	"net/http"
	"strconv"

	"restaurante-pedidos/internal/apperrors"
)

// Role is the caller's staff role, supplied by the identity layer in
// front of this service.
type Role string

const (
	RoleMesero Role = "mesero"
	RoleCocina Role = "cocina"
	RoleCajero Role = "cajero"
	RoleAdmin  Role = "admin"
)

// Identity is the authenticated caller extracted from request headers.
// Authentication itself happens upstream; this service only reads the
// headers the gateway stamps.
type Identity struct {
	OrgID  int64
	UserID *int64
	Role   Role
}

const (
	headerOrgID    = "X-Org-ID"
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// identityFromRequest reads the caller's organization, user and role
// from the gateway headers. The organization is mandatory; every query
// and mutation is scoped to it.
func identityFromRequest(r *http.Request) (*Identity, error) {
	orgRaw := r.Header.Get(headerOrgID)
	if orgRaw == "" {
		return nil, apperrors.UnauthorizedError{Message: "missing " + headerOrgID + " header"}
	}
	orgID, err := strconv.ParseInt(orgRaw, 10, 64)
	if err != nil || orgID <= 0 {
		return nil, apperrors.UnauthorizedError{Message: "invalid " + headerOrgID + " header"}
	}

	id := &Identity{OrgID: orgID, Role: Role(r.Header.Get(headerUserRole))}

	if userRaw := r.Header.Get(headerUserID); userRaw != "" {
		userID, err := strconv.ParseInt(userRaw, 10, 64)
		if err != nil || userID <= 0 {
			return nil, apperrors.UnauthorizedError{Message: "invalid " + headerUserID + " header"}
		}
		id.UserID = &userID
	}
	return id, nil
}

// Require returns an error unless the identity holds one of the given
// roles. Admin passes every check.
func (id *Identity) Require(roles ...Role) error {
	if id.Role == RoleAdmin {
		return nil
	}
	for _, role := range roles {
		if id.Role == role {
			return nil
		}
	}
	return apperrors.UnauthorizedError{Message: "role " + string(id.Role) + " may not perform this action"}
}
