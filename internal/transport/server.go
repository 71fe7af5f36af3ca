package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/feng-zhe/zhechord/internal/logger"
)

// Handler is everything the RPC server dispatches to — implemented by
// chordnode.RPCHandler, which wraps a chordnode.Node. Keeping it as an interface here, rather than importing
// chordnode, keeps transport a leaf package with no dependency on the
// engine it serves.
type Handler interface {
	FindPredecessor(ctx context.Context, id string) (string, error)
	FindSuccessor(ctx context.Context, id string) (string, error)
	GetPredecessor(ctx context.Context) (string, error)
	SetPredecessor(ctx context.Context, id string) error
	GetSuccessor(ctx context.Context) (string, error)
	SetSuccessor(ctx context.Context, id string) error
	ClosestPrecedingFinger(ctx context.Context, id string) (string, error)
	Notify(ctx context.Context, id string) error
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	DisplayFingerTable(ctx context.Context) ([]string, error)
	DisplayData(ctx context.Context) (map[string]string, error)
	DisplayBackupSucc(ctx context.Context) ([]string, error)
}

// Server is the node's RPC listener: thirteen POST endpoints, 200 on
// success, 400 on unknown path or malformed body.
type Server struct {
	addr   string
	h      Handler
	lgr    logger.Logger
	server *http.Server
}

// NewServer builds a Server bound to addr, dispatching to h.
func NewServer(addr string, h Handler, lgr logger.Logger) *Server {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	return &Server{addr: addr, h: h, lgr: lgr}
}

// routes builds the dispatch table: thirteen POST endpoints, plus a
// catch-all that answers 400 for unknown paths.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathFindPredecessor, s.handleIDToID(s.h.FindPredecessor))
	mux.HandleFunc(PathFindSuccessor, s.handleIDToID(s.h.FindSuccessor))
	mux.HandleFunc(PathClosestPrecedingFinger, s.handleIDToID(s.h.ClosestPrecedingFinger))
	mux.HandleFunc(PathGetPredecessor, s.handleNoArgToID(s.h.GetPredecessor))
	mux.HandleFunc(PathGetSuccessor, s.handleNoArgToID(s.h.GetSuccessor))
	mux.HandleFunc(PathSetPredecessor, s.handleIDToNothing(s.h.SetPredecessor))
	mux.HandleFunc(PathSetSuccessor, s.handleIDToNothing(s.h.SetSuccessor))
	mux.HandleFunc(PathNotify, s.handleIDToNothing(s.h.Notify))
	mux.HandleFunc(PathPut, s.handlePut)
	mux.HandleFunc(PathGet, s.handleGet)
	mux.HandleFunc(PathDisplayFingerTable, s.handleList(s.h.DisplayFingerTable))
	mux.HandleFunc(PathDisplayBackupSucc, s.handleList(s.h.DisplayBackupSucc))
	mux.HandleFunc(PathDisplayData, s.handleMap)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, fmt.Sprintf("unknown path %s", r.URL.Path), http.StatusBadRequest)
	})
	return mux
}

// Start blocks serving until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.lgr.Info("rpc server starting", logger.F("addr", s.addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if v == nil {
		_, _ = w.Write([]byte("{}"))
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.lgr.Error("rpc server: failed to encode response", logger.F("err", err))
	}
}

func (s *Server) badRequest(w http.ResponseWriter, path string, err error) {
	s.lgr.Warn("rpc server: bad request", logger.F("path", path), logger.F("err", err))
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func decodeBody[T any](r *http.Request) (T, error) {
	var body T
	if r.Body == nil {
		return body, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("decode body: %w", err)
	}
	return body, nil
}

func (s *Server) handleIDToID(fn func(context.Context, string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeBody[IDRequest](r)
		if err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		id, err := fn(r.Context(), req.ID)
		if err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		s.writeJSON(w, IDResponse{ID: id})
	}
}

func (s *Server) handleNoArgToID(fn func(context.Context) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := fn(r.Context())
		if err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		s.writeJSON(w, IDResponse{ID: id})
	}
}

func (s *Server) handleIDToNothing(fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeBody[IDRequest](r)
		if err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		if err := fn(r.Context(), req.ID); err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		s.writeJSON(w, nil)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[PutRequest](r)
	if err != nil {
		s.badRequest(w, r.URL.Path, err)
		return
	}
	if err := s.h.Put(r.Context(), req.Key, req.Value); err != nil {
		s.badRequest(w, r.URL.Path, err)
		return
	}
	s.writeJSON(w, nil)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[GetRequest](r)
	if err != nil {
		s.badRequest(w, r.URL.Path, err)
		return
	}
	value, _, err := s.h.Get(r.Context(), req.Key)
	if err != nil {
		s.badRequest(w, r.URL.Path, err)
		return
	}
	s.writeJSON(w, GetResponse{Value: value})
}

func (s *Server) handleList(fn func(context.Context) ([]string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := fn(r.Context())
		if err != nil {
			s.badRequest(w, r.URL.Path, err)
			return
		}
		s.writeJSON(w, ListResponse{Result: result})
	}
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	result, err := s.h.DisplayData(r.Context())
	if err != nil {
		s.badRequest(w, r.URL.Path, err)
		return
	}
	s.writeJSON(w, MapResponse{Result: result})
}
