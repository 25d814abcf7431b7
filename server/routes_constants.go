package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteOAuth2Token = "/oauth2/token"
	RouteHealth      = "/health"
)
