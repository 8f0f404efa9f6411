package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

type entry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type file struct {
	Users  []entry `yaml:"users"`
	Groups []entry `yaml:"groups"`
}

// Directory is a read-only user and group directory loaded from YAML.
//
//	users:
//	  - id: jdoe
//	    name: Jane Doe
//	    email: jane.doe@example.org
//	groups:
//	  - id: team-a
//	    name: Team A
//	    email: team-a@example.org
type Directory struct {
	users  map[string]domain.Contact
	groups map[string]domain.Contact
}

var _ ports.Directory = (*Directory)(nil)

// Load reads a directory file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return Parse(data)
}

// Parse builds a directory from YAML. Duplicate or empty ids are rejected.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse directory: %w", err)
	}

	users, errUsers := index("user", f.Users)
	groups, errGroups := index("group", f.Groups)
	if err := errors.Join(errUsers, errGroups); err != nil {
		return nil, err
	}
	return &Directory{users: users, groups: groups}, nil
}

// Empty returns a directory without entries.
func Empty() *Directory {
	return &Directory{users: map[string]domain.Contact{}, groups: map[string]domain.Contact{}}
}

func index(kind string, entries []entry) (map[string]domain.Contact, error) {
	contacts := make(map[string]domain.Contact, len(entries))
	var errs []error
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("%s #%d: id is required", kind, i+1))
			continue
		}
		if _, dup := contacts[id]; dup {
			errs = append(errs, fmt.Errorf("%s %q: duplicate id", kind, id))
			continue
		}
		contacts[id] = domain.Contact{ID: id, Name: e.Name, Email: strings.TrimSpace(e.Email)}
	}
	return contacts, errors.Join(errs...)
}

// User returns the contact details of a user.
func (d *Directory) User(_ context.Context, id string) (*domain.Contact, error) {
	return lookup(d.users, id)
}

// Group returns the contact details of a group.
func (d *Directory) Group(_ context.Context, id string) (*domain.Contact, error) {
	return lookup(d.groups, id)
}

// Len returns the number of users and groups.
func (d *Directory) Len() (users, groups int) {
	return len(d.users), len(d.groups)
}

func lookup(contacts map[string]domain.Contact, id string) (*domain.Contact, error) {
	c, ok := contacts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}
