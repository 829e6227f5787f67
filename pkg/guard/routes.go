package guard

import (
	"strings"

	"golang.org/x/exp/slices"
)

type Route struct {
	Name        string
	Pattern     string
	Requirement Requirement
}

// Router matches request paths against route patterns. A pattern segment
// starting with ':' captures that path segment as a parameter.
type Router struct {
	routes []Route
}

func NewRouter(routes ...Route) *Router {
	return &Router{routes: routes}
}

// DefaultRouter holds the pages of the bus tracker.
func DefaultRouter() *Router {
	return NewRouter(
		Route{Name: "home", Pattern: "/", Requirement: Public},
		Route{Name: "login", Pattern: "/login", Requirement: Public},
		Route{Name: "register", Pattern: "/register", Requirement: Public},
		Route{Name: "admin-login", Pattern: "/admin/login", Requirement: Public},

		Route{Name: "search", Pattern: "/search", Requirement: RequiresAuth},
		Route{Name: "bus-details", Pattern: "/bus/:id", Requirement: RequiresAuth},
		Route{Name: "profile", Pattern: "/profile", Requirement: RequiresAuth},

		Route{Name: "admin-dashboard", Pattern: "/admin/dashboard", Requirement: RequiresAdmin},
		Route{Name: "admin-buses", Pattern: "/admin/buses", Requirement: RequiresAdmin},
		Route{Name: "admin-stations", Pattern: "/admin/stations", Requirement: RequiresAdmin},
		Route{Name: "admin-schedules", Pattern: "/admin/schedules", Requirement: RequiresAdmin},
	)
}

func (r *Router) Routes() []Route {
	return slices.Clone(r.routes)
}

func (r *Router) Match(path string) (Route, map[string]string, bool) {
	segments := splitPath(path)

	for _, route := range r.routes {
		if params, ok := matchSegments(splitPath(route.Pattern), segments); ok {
			return route, params, true
		}
	}

	return Route{}, nil, false
}

func matchSegments(pattern []string, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}

	params := map[string]string{}

	for i, segment := range pattern {
		if name, isParam := strings.CutPrefix(segment, ":"); isParam {
			if path[i] == "" {
				return nil, false
			}
			params[name] = path[i]
			continue
		}

		if segment != path[i] {
			return nil, false
		}
	}

	return params, true
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}

	return strings.Split(path, "/")
}
