package auth

// Known OAuth scopes used by the backend.
const (
	ScopeCheckinsRead  = "checkins:read"
	ScopeCheckinsWrite = "checkins:write"
	ScopePassiveRead   = "passive:read"
	ScopePassiveWrite  = "passive:write"
)
