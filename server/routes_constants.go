package server

const (
	RouteLogin   = "/users/login"
	RouteRefresh = "/users/refresh"
	RouteLogout  = "/users/logout"
)
