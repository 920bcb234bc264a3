package sdk

// Version is the published SDK version.
// 0.2.0: Breaking - Session subscribers receive the full Session value instead
// of a status string; RouteGuard gains the pending decision for boot restore.
// 0.1.0: Initial release: session manager, 401 refresh recovery, route guard.
const Version = "0.2.0"
