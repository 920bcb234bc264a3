// Package routes provides shared API route constants used by the
// dashboard clients to prevent path mismatches.
package routes

// API route paths, relative to the configured base URL.
const (
	// AuthLogin exchanges email/password for an access token.
	AuthLogin = "/auth/login"

	// AuthRefresh exchanges the refresh cookie for a new access token.
	AuthRefresh = "/auth/refresh"

	// AuthLogout revokes the server-side session. Best effort from the
	// client's point of view.
	AuthLogout = "/auth/logout"

	// AuthCreateUser registers a new account from an invite token.
	AuthCreateUser = "/auth/create-user"

	// FridgesCountActive returns the number of active fridges.
	FridgesCountActive = "/neveras/count/active"
)
