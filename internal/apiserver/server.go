// Package apiserver implements the ambient CLI "server" subcommand's HTTP
// surface. Spec §1/§6 name the GraphQL projection itself as an external
// collaborator ("read-only GraphQL projection (its resolvers are thin
// wrappers over queries specified in §4)") — we do not ship a GraphQL
// schema/parser engine, following SPEC_FULL.md §4.10's decision that only
// C10 (internal/query) is in scope. What we do ship is the single POST
// `/graphql` endpoint spec §6 names, with CORS permissive, dispatching by an
// `operation` field to the same C10 methods a real resolver layer would
// call — the thinnest possible stand-in for the wrapper, not a
// reimplementation of the protocol it wraps.
package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ammcontest/indexer/internal/query"
	"github.com/ammcontest/indexer/internal/storage"
)

// pairChildren bundles one pair's mint/burn/swap history for the
// "pairChildren" dispatch operation below.
type pairChildren struct {
	Mints []storage.Mint
	Burns []storage.Burn
	Swaps []storage.Swap
}

// Server wraps the HTTP transport around a query.Service, following the
// teacher's NewServer/Start/Shutdown lifecycle
// (internal/api/server_bootstrap.go).
type Server struct {
	httpServer *http.Server
	log        *logrus.Entry
}

// NewServer builds the router: the /healthz check and the single
// `/graphql` POST endpoint (spec §6: "one POST endpoint /graphql on port
// 8000 with CORS permissive").
func NewServer(svc *query.Service, addr string, log *logrus.Entry) *Server {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	h := &handler{svc: svc, log: log}
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/graphql", h.graphql).Methods(http.MethodPost, http.MethodOptions)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("apiserver: listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handler struct {
	svc *query.Service
	log *logrus.Entry
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// graphqlRequest mirrors the shape a thin GraphQL HTTP transport would
// forward to a resolver: an operation selector plus its variables. It is
// not a GraphQL query document — no field selection or schema validation
// happens here, per the package doc comment above.
type graphqlRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}

func (h *handler) graphql(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, err)
		return
	}

	data, err := h.dispatch(r.Context(), req)
	if err != nil {
		writeErrors(w, http.StatusOK, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeErrors(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]string{{"message": err.Error()}},
	})
}

func (h *handler) dispatch(ctx context.Context, req graphqlRequest) (interface{}, error) {
	switch req.Operation {
	case "pairs":
		var v struct {
			query.Filter
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Pairs(ctx, v.Filter)
	case "tokens":
		var v struct {
			query.Filter
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Tokens(ctx, v.Filter)
	case "users":
		var v struct {
			query.Filter
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Users(ctx, v.Filter)
	case "pair":
		var v struct {
			ID          string  `json:"id"`
			BlockNumber *uint64 `json:"blockNumber"`
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Pair(ctx, v.ID, v.BlockNumber)
	case "token":
		var v struct {
			ID          string  `json:"id"`
			BlockNumber *uint64 `json:"blockNumber"`
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Token(ctx, v.ID, v.BlockNumber)
	case "rank":
		var v struct {
			User string `json:"user"`
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		return h.svc.Rank(ctx, v.User)
	case "leaderboard":
		return h.svc.Leaderboard(ctx)
	case "pairChildren":
		// Batches mints/burns/swaps for a page of pairs through one
		// request-scoped PairChildLoader (spec §4.10's dataloader), rather
		// than resolving each pair's children with its own query.
		var v struct {
			PairIDs []string `json:"pairIds"`
		}
		if err := decodeVars(req.Variables, &v); err != nil {
			return nil, err
		}
		loader := query.NewPairChildLoader(h.svc.Store, v.PairIDs)
		out := make(map[string]pairChildren, len(v.PairIDs))
		for _, id := range v.PairIDs {
			mints, err := loader.Mints(ctx, id)
			if err != nil {
				return nil, err
			}
			burns, err := loader.Burns(ctx, id)
			if err != nil {
				return nil, err
			}
			swaps, err := loader.Swaps(ctx, id)
			if err != nil {
				return nil, err
			}
			out[id] = pairChildren{Mints: mints, Burns: burns, Swaps: swaps}
		}
		return out, nil
	default:
		return nil, unknownOperationError(req.Operation)
	}
}

func decodeVars(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

type unknownOperationError string

func (e unknownOperationError) Error() string { return "apiserver: unknown operation " + string(e) }
