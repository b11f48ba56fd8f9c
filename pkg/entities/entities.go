// Package entities holds the payload types exchanged with the workspace, collection and
// user APIs. JSON keys match the field names the APIs use.
package entities

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

type User struct {
	ID       int     `json:"id,omitempty"`
	Name     string  `json:"name" validate:"required"`
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Address  Address `json:"address"`
}

func (u User) Validate() error {
	return validateStruct(u)
}

// Workspace is a Postman-style workspace. ID is read from responses but never sent:
// the server assigns it. I and MyMap are client-side scratch fields.
type Workspace struct {
	ID          string         `json:"id"`
	Name        string         `json:"name" validate:"required"`
	Type        string         `json:"type" validate:"required,oneof=personal team"`
	Description string         `json:"description"`
	I           int            `json:"-"`
	MyMap       map[string]any `json:"-"`
}

// MarshalJSON omits ID.
func (w Workspace) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}{w.Name, w.Type, w.Description})
}

func (w Workspace) Validate() error {
	return validateStruct(w)
}

// WorkspaceRoot wraps a workspace in the envelope the workspace API expects.
type WorkspaceRoot struct {
	Workspace Workspace `json:"workspace"`
}

type CollectionRoot struct {
	Collection Collection `json:"collection"`
}

type Collection struct {
	Info  Info     `json:"info" validate:"required"`
	Items []Folder `json:"items"`
}

func (c Collection) Validate() error {
	return validateStruct(c)
}

type Info struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema" validate:"required"`
}

type Folder struct {
	Name  string        `json:"name"`
	Items []RequestRoot `json:"items"`
}

type RequestRoot struct {
	Name    string  `json:"name"`
	Request Request `json:"request"`
}

type Request struct {
	URL         string   `json:"url"`
	Method      string   `json:"method"`
	Header      []Header `json:"header"`
	Body        Body     `json:"body"`
	Description string   `json:"description"`
}

type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Body struct {
	Mode string `json:"mode"`
	Raw  string `json:"raw"`
}
