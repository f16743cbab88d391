package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// defaultAction is used when the route omits the action segment
const defaultAction = "index"

// actionHandler handles one controller action; id is empty for actions that
// take no id
type actionHandler func(w http.ResponseWriter, r *http.Request, id string)

// action describes one controller action
type action struct {
	method  string
	needsID bool
	handle  actionHandler
}

// controller maps lower-case action names to actions
type controller map[string]action

// registerControllers builds the controller table for the
// {controller}/{action=Index}/{id?} convention
func (a *API) registerControllers() map[string]controller {
	return map[string]controller{
		"users": {
			"index":    {method: http.MethodGet, handle: a.listUsers},
			"get":      {method: http.MethodGet, needsID: true, handle: a.getUser},
			"username": {method: http.MethodGet, needsID: true, handle: a.getUserByUsername},
			"email":    {method: http.MethodGet, needsID: true, handle: a.getUserByEmail},
			"create":   {method: http.MethodPost, handle: a.createUser},
			"update":   {method: http.MethodPut, needsID: true, handle: a.updateUser},
			"delete":   {method: http.MethodDelete, needsID: true, handle: a.deleteUser},
		},
		"jobdata": {
			"index":  {method: http.MethodGet, handle: a.listJobApplications},
			"get":    {method: http.MethodGet, needsID: true, handle: a.getJobApplication},
			"user":   {method: http.MethodGet, needsID: true, handle: a.listJobApplicationsForUser},
			"create": {method: http.MethodPost, handle: a.createJobApplication},
			"update": {method: http.MethodPut, needsID: true, handle: a.updateJobApplication},
			"delete": {method: http.MethodDelete, needsID: true, handle: a.deleteJobApplication},
		},
	}
}

// routingMiddleware dispatches to the health and metrics endpoints and the
// controller convention routes. Requests no route claims go to next.
func (a *API) routingMiddleware(next http.Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Each convention route also matches with a trailing slash
	dispatch := a.conventionHandler(next)
	for _, tmpl := range []string{"/{controller}", "/{controller}/{action}", "/{controller}/{action}/{id}"} {
		router.Handle(tmpl, dispatch)
		router.Handle(tmpl+"/", dispatch)
	}

	router.NotFoundHandler = next
	router.MethodNotAllowedHandler = next
	a.router = router
	return router
}

// conventionHandler resolves controller and action names case-insensitively.
// Unknown controllers or actions, and id presence that does not fit the
// action, fall through to next.
func (a *API) conventionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ctrl, ok := a.controllers[strings.ToLower(vars["controller"])]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		name := strings.ToLower(vars["action"])
		if name == "" {
			name = defaultAction
		}
		act, ok := ctrl[name]
		id := vars["id"]
		if !ok || act.needsID != (id != "") {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method != act.method && !(act.method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", allowedMethods(act.method))
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
			return
		}

		act.handle(w, r, id)
	})
}

func allowedMethods(method string) string {
	if method == http.MethodGet {
		return "GET, HEAD"
	}
	return method
}

// HealthResponse reports service and dependency health
type HealthResponse struct {
	Status   string            `json:"status" example:"ok"`
	Checks   map[string]string `json:"checks,omitempty"`
	Stages   []StageName       `json:"stages"`
	Time     time.Time         `json:"time"`
	Database string            `json:"database,omitempty" example:"trackr"`
}

// healthCheck godoc
//
//	@Summary		Service health
//	@Description	Reports process health and, when configured, database reachability
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Stages:   a.stages,
		Time:     time.Now().UTC(),
		Database: a.config.Database.DatabaseName,
	}
	status := http.StatusOK

	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Checks = map[string]string{}
		if err := a.health(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["mongodb"] = sanitizeErrorMessage(err.Error())
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["mongodb"] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// controllerNames lists the registered controllers, sorted
func (a *API) controllerNames() []string {
	names := make([]string, 0, len(a.controllers))
	for name := range a.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
