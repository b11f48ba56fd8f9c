package echoserver

import (
	"sort"
	"sync"

	"github.com/tansive/restspec/internal/common"
	"github.com/tansive/restspec/internal/common/uuid"
	"github.com/tansive/restspec/pkg/entities"
)

type workspaceRecord struct {
	ID          string `json:"id" xml:"id,attr"`
	Name        string `json:"name" xml:"name"`
	Type        string `json:"type" xml:"type"`
	Description string `json:"description,omitempty" xml:"description,omitempty"`
}

type collectionRecord struct {
	ID         string              `json:"id"`
	UID        string              `json:"uid"`
	Collection entities.Collection `json:"collection"`
}

// store holds the mutable state of the mock APIs.
type store struct {
	mu          sync.RWMutex
	owner       string
	workspaces  map[string]workspaceRecord
	collections map[string]collectionRecord
	users       map[int]entities.User
	nextUserID  int
}

func newStore() (*store, error) {
	owner, err := common.NewOwnerID()
	if err != nil {
		return nil, err
	}
	s := &store{
		owner:       owner,
		workspaces:  map[string]workspaceRecord{},
		collections: map[string]collectionRecord{},
		users:       map[int]entities.User{},
	}
	s.workspaces["my-workspace"] = workspaceRecord{ID: "my-workspace", Name: "My Workspace", Type: "personal"}
	for _, u := range seedUsers {
		s.users[u.ID] = u
		if u.ID >= s.nextUserID {
			s.nextUserID = u.ID + 1
		}
	}
	return s, nil
}

func (s *store) listWorkspaces(wsType string) []workspaceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]workspaceRecord, 0, len(s.workspaces))
	for _, w := range s.workspaces {
		if wsType == "" || w.Type == wsType {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *store) getWorkspace(id string) (workspaceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	return w, ok
}

func (s *store) createWorkspace(w entities.Workspace) workspaceRecord {
	rec := workspaceRecord{ID: uuid.NewString(), Name: w.Name, Type: w.Type, Description: w.Description}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[rec.ID] = rec
	return rec
}

func (s *store) updateWorkspace(id string, w entities.Workspace) (workspaceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return workspaceRecord{}, false
	}
	rec := workspaceRecord{ID: id, Name: w.Name, Type: w.Type, Description: w.Description}
	s.workspaces[id] = rec
	return rec, true
}

func (s *store) deleteWorkspace(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return false
	}
	delete(s.workspaces, id)
	return true
}

func (s *store) createCollection(c entities.Collection) collectionRecord {
	id := uuid.NewString()
	rec := collectionRecord{ID: id, UID: s.owner + "-" + id, Collection: c}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[rec.UID] = rec
	return rec
}

func (s *store) getCollection(uid string) (collectionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[uid]
	return c, ok
}

func (s *store) listUsers(filter func(entities.User) bool) []entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.User, 0, len(s.users))
	for _, u := range s.users {
		if filter == nil || filter(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) getUser(id int) (entities.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// createUser assigns the next id. Created users are not persisted, matching the
// behavior of the public placeholder API.
func (s *store) createUser(u entities.User) entities.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextUserID
	s.nextUserID++
	return u
}

var seedUsers = []entities.User{
	{
		ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz",
		Address: entities.Address{
			Street: "Kulas Light", Suite: "Apt. 556", City: "Gwenborough", Zipcode: "92998-3874",
			Geo: entities.Geo{Lat: "-37.3159", Lng: "81.1496"},
		},
	},
	{
		ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv",
		Address: entities.Address{
			Street: "Victor Plains", Suite: "Suite 879", City: "Wisokyburgh", Zipcode: "90566-7771",
			Geo: entities.Geo{Lat: "-43.9509", Lng: "-34.4618"},
		},
	},
	{
		ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net",
		Address: entities.Address{
			Street: "Douglas Extension", Suite: "Suite 847", City: "McKenziehaven", Zipcode: "59590-4157",
			Geo: entities.Geo{Lat: "-68.6102", Lng: "-47.0653"},
		},
	},
}
