// Package guard decides whether the current session may open a route.
package guard

import (
	"errors"
	"fmt"
	"net/http"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Well-known paths.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Guard errors.
var (
	ErrRouteNotFound = errors.New("route not found")
	ErrInvalidRoute  = errors.New("route requires a name and a path")
)

// Route is one navigable page.
type Route struct {
	Name string
	// Path is a gorilla/mux template such as "/person/{id}".
	Path         string
	RequiresAuth bool
	// Rule is an optional expr-lang boolean expression over the session
	// state, e.g. `"person" in permissions`.
	Rule string
}

// DefaultRoutes returns the console's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "home", Path: HomePath},
		{Name: "login", Path: LoginPath},
		{Name: "person", Path: "/person", RequiresAuth: true, Rule: `"person" in permissions`},
		{Name: "person-detail", Path: "/person/{id}", RequiresAuth: true, Rule: `"person" in permissions`},
	}
}

// Decision is the outcome of a route check.
type Decision struct {
	Route    string
	Allowed  bool
	Redirect string
	Reason   string
	// Vars holds the path variables, e.g. {"id": "42"}.
	Vars map[string]string
}

// SnapshotSource supplies the session state rules are evaluated against.
type SnapshotSource interface {
	Snapshot() map[string]any
}

type compiledRoute struct {
	Route
	program *exprvm.Program
}

// Guard checks paths against a route table.
type Guard struct {
	router *mux.Router
	routes map[string]compiledRoute
	source SnapshotSource
	logger *zap.Logger
}

// New compiles routes. A rule that does not compile fails construction.
func New(source SnapshotSource, routes []Route, logger *zap.Logger) (*Guard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Guard{
		router: mux.NewRouter(),
		routes: make(map[string]compiledRoute, len(routes)),
		source: source,
		logger: logger,
	}

	for _, route := range routes {
		if route.Name == "" || route.Path == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidRoute, route)
		}

		compiled := compiledRoute{Route: route}
		if route.Rule != "" {
			program, err := exprlang.Compile(route.Rule,
				exprlang.Env(map[string]any{}),
				exprlang.AllowUndefinedVariables(),
				exprlang.AsBool(),
			)
			if err != nil {
				return nil, fmt.Errorf("compiling rule of route %s: %w", route.Name, err)
			}
			compiled.program = program
		}

		g.routes[route.Name] = compiled
		g.router.NewRoute().Name(route.Name).Path(route.Path)
	}

	return g, nil
}

// Check resolves path to a route and decides access. Unauthenticated access
// to a protected route redirects to the login page; a failing rule redirects
// home.
func (g *Guard) Check(path string) (Decision, error) {
	route, vars, err := g.match(path)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Route: route.Name, Allowed: true, Vars: vars}
	snapshot := g.source.Snapshot()

	if route.RequiresAuth && !authenticated(snapshot) {
		decision.Allowed = false
		decision.Redirect = LoginPath
		decision.Reason = "authentication required"
	} else if route.program != nil {
		ok, err := evaluate(route.program, snapshot)
		if err != nil || !ok {
			decision.Allowed = false
			decision.Redirect = HomePath
			decision.Reason = "rule not satisfied: " + route.Rule
			if err != nil {
				decision.Reason = fmt.Sprintf("rule failed: %v", err)
			}
		}
	}

	g.logger.Debug("route checked",
		zap.String("path", path),
		zap.String("route", decision.Route),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", decision.Reason),
	)
	return decision, nil
}

// Routes returns the route names.
func (g *Guard) Routes() []string {
	var names []string
	_ = g.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		names = append(names, route.GetName())
		return nil
	})
	return names
}

func (g *Guard) match(path string) (compiledRoute, map[string]string, error) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return compiledRoute{}, nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	var match mux.RouteMatch
	if !g.router.Match(req, &match) || match.Route == nil {
		return compiledRoute{}, nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	return g.routes[match.Route.GetName()], match.Vars, nil
}

func authenticated(snapshot map[string]any) bool {
	token, _ := snapshot["token"].(string)
	return token != ""
}

func evaluate(program *exprvm.Program, env map[string]any) (bool, error) {
	result, err := exprlang.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("rule returned %T, want bool", result)
	}
	return ok, nil
}
