package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/facilimate/tquery/engine"
	"github.com/facilimate/tquery/log"
	"github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

// facilityHeader carries the caller's facility scope, set by the
// authorization middleware in front of this router.
const facilityHeader = "X-Facility-Id"

// Server exposes the table schemas and the query endpoint.
type Server struct {
	registry *schema.Registry
	engines  map[string]*engine.Engine
	logger   log.Logger
}

// NewServer builds one engine per registered entity view.
func NewServer(registry *schema.Registry, session engine.Session, logger log.Logger, debug bool) *Server {
	engines := make(map[string]*engine.Engine)
	for _, name := range registry.Names() {
		s, _ := registry.Get(name)
		engines[name] = engine.New(s, session, logger, debug)
	}
	return &Server{registry: registry, engines: engines, logger: logger}
}

// ApiRouter gets the router for the tabular query API.
func (s *Server) ApiRouter() *httprouter.Router {
	router := httprouter.New()
	router.GET("/", index)
	router.GET("/v1/tables", s.tablesHandler)
	router.GET("/v1/tables/:table/schema", s.schemaHandler)
	router.POST("/v1/tables/:table/query", s.queryHandler)
	return router
}

func (s *Server) tablesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": s.registry.Names()})
}

func (s *Server) schemaHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	eng, ok := s.engines[params.ByName("table")]
	if !ok {
		s.writeError(w, errors.NewNotFoundError("table not found"))
		return
	}
	writeJSON(w, http.StatusOK, eng.Schema())
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	eng, ok := s.engines[params.ByName("table")]
	if !ok {
		s.writeError(w, errors.NewNotFoundError("table not found"))
		return
	}

	var request types.DataRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		validation := errors.NewValidationError()
		validation.Add("", "malformed request body: "+err.Error())
		s.writeError(w, validation)
		return
	}

	intrinsic, err := s.intrinsicFilter(eng, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	response, err := eng.Run(r.Context(), request, intrinsic)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// intrinsicFilter builds the scope filter from the facility header for views
// exposing a facility column. The header value comes from trusted middleware.
func (s *Server) intrinsicFilter(eng *engine.Engine, r *http.Request) (types.Filter, error) {
	facilityID := r.Header.Get(facilityHeader)
	if facilityID == "" {
		return nil, nil
	}
	wire := eng.Schema()
	if wire.ColumnByName("facility.id") == nil {
		return nil, nil
	}
	return &types.ColumnFilter{Column: "facility.id", Op: types.OpEq, Val: facilityID}, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := fmt.Fprint(w, "Welcome to the tabular query API!\n"); err != nil {
		panic(err)
	}
}
