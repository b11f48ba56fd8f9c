package echoserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/restspec/internal/common/httpx"
	"github.com/tansive/restspec/pkg/entities"
)

func (s *Server) mountUserHandlers(r chi.Router) {
	r.Get("/", httpx.WrapHttpRsp(s.listUsers))
	r.Post("/", httpx.WrapHttpRsp(s.createUser))
	r.Get("/{id}", httpx.WrapHttpRsp(s.getUser))
}

// listUsers supports filtering by the username and email query parameters.
func (s *Server) listUsers(r *http.Request) (*httpx.Response, error) {
	q := r.URL.Query()
	username, email := q.Get("username"), q.Get("email")
	users := s.store.listUsers(func(u entities.User) bool {
		return (username == "" || u.Username == username) && (email == "" || u.Email == email)
	})
	return &httpx.Response{StatusCode: http.StatusOK, Response: users}, nil
}

func (s *Server) getUser(r *http.Request) (*httpx.Response, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("user id must be a number")
	}
	u, ok := s.store.getUser(id)
	if !ok {
		return nil, httpx.ErrNotFound("user " + strconv.Itoa(id))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: u}, nil
}

func (s *Server) createUser(r *http.Request) (*httpx.Response, error) {
	var u entities.User
	if err := httpx.GetRequestData(r, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	created := s.store.createUser(u)
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/users/" + strconv.Itoa(created.ID),
		Response:   created,
	}, nil
}
