package guard

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/hongminglow/anonboard/internal/session"
)

// Route is one client destination.
type Route struct {
	Name   string
	Path   string
	Access Access
}

// DefaultRoutes is the board's navigation table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "landing", Path: "/", Access: PublicOnly},
		{Name: "login", Path: "/login", Access: PublicOnly},
		{Name: "signup", Path: "/signup", Access: PublicOnly},
		{Name: "verify-email", Path: "/verify-email", Access: PublicOnly},
		{Name: "forgot-password", Path: "/forgot-password", Access: PublicOnly},
		{Name: "reset-password", Path: "/reset-password", Access: PublicOnly},
		{Name: "feed", Path: "/feed", Access: Protected},
		{Name: "trending", Path: "/trending", Access: Protected},
		{Name: "my-posts", Path: "/my-posts", Access: Protected},
		{Name: "create", Path: "/create", Access: Protected},
		{Name: "post", Path: "/post/{id}", Access: Protected},
		{Name: "premium", Path: "/premium", Access: Protected},
		{Name: "jobs", Path: "/jobs", Access: Protected},
		{Name: "job", Path: "/jobs/{id}", Access: Protected},
		{Name: "admin", Path: "/admin", Access: AdminOnly},
		{Name: "admin-jobs", Path: "/admin/jobs", Access: AdminOnly},
	}
}

// Router matches paths against the route table.
type Router struct {
	mux    *mux.Router
	access map[string]Route
}

// NewRouter builds a router over routes.
func NewRouter(routes []Route) *Router {
	r := &Router{mux: mux.NewRouter(), access: make(map[string]Route, len(routes))}
	for _, route := range routes {
		r.mux.NewRoute().Name(route.Name).Path(route.Path)
		r.access[route.Name] = route
	}
	return r
}

// Match finds the route for path along with its path variables.
func (r *Router) Match(path string) (Route, map[string]string, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return Route{}, nil, false
	}
	req := &http.Request{Method: http.MethodGet, URL: u}
	var match mux.RouteMatch
	if !r.mux.Match(req, &match) || match.Route == nil {
		return Route{}, nil, false
	}
	route, ok := r.access[match.Route.GetName()]
	return route, match.Vars, ok
}

// Resolve evaluates path for state. Unknown paths redirect to the root.
func (r *Router) Resolve(path string, state session.AuthState) Decision {
	route, _, ok := r.Match(path)
	if !ok {
		return Decision{Outcome: Redirect, RedirectTo: RootPath}
	}
	return Evaluate(state, route.Access)
}
