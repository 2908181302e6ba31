package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"docbase/src/directors"
	"docbase/src/helpers"
	"docbase/src/permissions"
	"docbase/src/query"
	"docbase/src/store"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCollection)
	return mux
}

// handleCollection dispatches /{route} and /{route}/{id} for every
// registered type.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	reqID := helpers.GenerateUUID()

	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	model, ok := s.registry.ByRoute(parts[0])
	if !ok {
		http.NotFound(w, r)
		return
	}
	svc, err := s.manager.Service(model.TypeName)
	if err != nil {
		s.fail(w, reqID, err)
		return
	}

	user, ok := s.identify(w, r)
	if !ok {
		return
	}

	var id primitive.ObjectID
	hasID := len(parts) == 2
	if hasID {
		id, err = primitive.ObjectIDFromHex(parts[1])
		if err != nil {
			http.Error(w, "malformed id", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	switch {
	case r.Method == http.MethodGet && !hasID:
		filter := helpers.FilterFromQuery(r.URL.Query())
		docs, err := svc.Search(ctx, user, filter)
		if err != nil {
			s.fail(w, reqID, err)
			return
		}
		s.respond(w, reqID, docs)
	case r.Method == http.MethodGet:
		doc, err := svc.Get(ctx, user, id)
		if err != nil {
			s.fail(w, reqID, err)
			return
		}
		s.respond(w, reqID, doc)
	case r.Method == http.MethodPost && !hasID:
		doc, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		newID, err := svc.Add(ctx, user, doc)
		if err != nil {
			s.fail(w, reqID, err)
			return
		}
		s.respond(w, reqID, bson.M{"id": newID.Hex()})
	case r.Method == http.MethodPut && hasID:
		doc, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		if err := svc.Update(ctx, user, id, doc); err != nil {
			s.fail(w, reqID, err)
			return
		}
		s.respond(w, reqID, bson.M{"id": id.Hex()})
	case r.Method == http.MethodDelete && hasID:
		if err := svc.Remove(ctx, user, id); err != nil {
			s.fail(w, reqID, err)
			return
		}
		s.respond(w, reqID, bson.M{"id": id.Hex()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// identify resolves the caller. With auth disabled the server is open
// and every caller is treated as a super admin.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (permissions.User, bool) {
	if !s.AuthEnabled {
		return permissions.User{SuperAdmin: true}, true
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="docbase"`)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return permissions.User{}, false
	}
	u, err := s.users.Authenticate(username, password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return permissions.User{}, false
	}
	return u.Permissions(), true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (bson.M, bool) {
	var doc bson.M
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return nil, false
	}
	return doc, true
}

func (s *Server) respond(w http.ResponseWriter, reqID string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("writing response", "request", reqID, "error", err)
	}
}

// fail maps core errors onto status codes: caller errors to 400,
// denials to 403, missing documents to 404, everything else to 500.
func (s *Server) fail(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, query.ErrUnknownField), errors.Is(err, query.ErrBadValue):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, directors.ErrDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Errorw("request failed", "request", reqID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
