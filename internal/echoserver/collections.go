package echoserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/restspec/internal/common/httpx"
	"github.com/tansive/restspec/pkg/entities"
)

func (s *Server) mountCollectionHandlers(r chi.Router) {
	r.Use(s.requireAPIKey)
	r.Post("/", httpx.WrapHttpRsp(s.createCollection))
	r.Get("/{uid}", httpx.WrapHttpRsp(s.getCollection))
}

func (s *Server) createCollection(r *http.Request) (*httpx.Response, error) {
	var root entities.CollectionRoot
	if err := httpx.GetRequestData(r, &root); err != nil {
		return nil, err
	}
	if err := root.Collection.Validate(); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	rec := s.store.createCollection(root.Collection)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{"collection": map[string]string{
			"id":   rec.ID,
			"name": rec.Collection.Info.Name,
			"uid":  rec.UID,
		}},
	}, nil
}

func (s *Server) getCollection(r *http.Request) (*httpx.Response, error) {
	uid := chi.URLParam(r, "uid")
	rec, ok := s.store.getCollection(uid)
	if !ok {
		return nil, httpx.ErrNotFound("collection " + uid)
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"collection": rec.Collection},
	}, nil
}
