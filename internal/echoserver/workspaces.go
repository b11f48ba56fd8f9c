package echoserver

import (
	"crypto/subtle"
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tansive/restspec/internal/common/httpx"
	"github.com/tansive/restspec/pkg/entities"
)

func (s *Server) mountWorkspaceHandlers(r chi.Router) {
	r.Use(s.requireAPIKey)
	r.Get("/", httpx.WrapHttpRsp(s.listWorkspaces))
	r.Post("/", httpx.WrapHttpRsp(s.createWorkspace))
	r.Get("/{id}", httpx.WrapHttpRsp(s.getWorkspace))
	r.Put("/{id}", httpx.WrapHttpRsp(s.updateWorkspace))
	r.Delete("/{id}", httpx.WrapHttpRsp(s.deleteWorkspace))
}

// requireAPIKey rejects requests without the configured API key. It is a no-op when no
// key is configured.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			httpx.ErrMissingKeyInRequest().Send(w)
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.APIKey)) != 1 {
			log.Ctx(r.Context()).Debug().Msg("invalid api key")
			httpx.ErrUnAuthorized("invalid API key").Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type workspacesXML struct {
	XMLName    xml.Name          `xml:"workspaces"`
	Workspaces []workspaceRecord `xml:"workspace"`
}

func (s *Server) listWorkspaces(r *http.Request) (*httpx.Response, error) {
	list := s.store.listWorkspaces(r.URL.Query().Get("type"))
	if strings.Contains(r.Header.Get("Accept"), "xml") {
		b, err := xml.Marshal(workspacesXML{Workspaces: list})
		if err != nil {
			return nil, httpx.ErrApplicationError("unable to encode workspaces")
		}
		return &httpx.Response{
			StatusCode:  http.StatusOK,
			ContentType: "application/xml; charset=utf-8",
			Response:    append([]byte(xml.Header), b...),
		}, nil
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"workspaces": list},
	}, nil
}

func (s *Server) readWorkspace(r *http.Request) (entities.Workspace, error) {
	var root entities.WorkspaceRoot
	if err := httpx.GetRequestData(r, &root); err != nil {
		return entities.Workspace{}, err
	}
	if err := root.Workspace.Validate(); err != nil {
		return entities.Workspace{}, httpx.ErrInvalidRequest(err.Error())
	}
	return root.Workspace, nil
}

func (s *Server) createWorkspace(r *http.Request) (*httpx.Response, error) {
	w, err := s.readWorkspace(r)
	if err != nil {
		return nil, err
	}
	rec := s.store.createWorkspace(w)
	log.Ctx(r.Context()).Debug().Str("workspace", rec.ID).Msg("workspace created")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"workspace": map[string]string{"id": rec.ID, "name": rec.Name}},
	}, nil
}

func (s *Server) getWorkspace(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "id")
	rec, ok := s.store.getWorkspace(id)
	if !ok {
		return nil, httpx.ErrNotFound("workspace " + id)
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"workspace": rec},
	}, nil
}

func (s *Server) updateWorkspace(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "id")
	w, err := s.readWorkspace(r)
	if err != nil {
		return nil, err
	}
	rec, ok := s.store.updateWorkspace(id, w)
	if !ok {
		return nil, httpx.ErrNotFound("workspace " + id)
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"workspace": map[string]string{"id": rec.ID, "name": rec.Name}},
	}, nil
}

func (s *Server) deleteWorkspace(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "id")
	if !s.store.deleteWorkspace(id) {
		return nil, httpx.ErrNotFound("workspace " + id)
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"workspace": map[string]string{"id": id}},
	}, nil
}
