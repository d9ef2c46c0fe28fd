package domain

// ID is used across domain entities.
type ID int64

// Roles recognized by the dispatch capability checks. The identity
// collaborator is trusted to have authenticated the caller already.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
)

// RequestContext carries the authenticated caller identity into the core
// services. DriverID is set only for driver accounts.
type RequestContext struct {
	UserID   ID     `json:"userId"`
	Role     string `json:"role"`
	DriverID ID     `json:"driverId,omitempty"`
}

// CanDispatch reports whether the caller may run assignment/unassignment and
// dashboard operations.
func (rc RequestContext) CanDispatch() bool {
	return rc.Role == RoleAdmin || rc.Role == RoleDispatcher
}

// IsDriver reports whether the caller is a driver account with an attached
// driver identity.
func (rc RequestContext) IsDriver() bool {
	return rc.Role == RoleDriver && rc.DriverID > 0
}
