package presence

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultSubjectName is used when no display name has been set.
const DefaultSubjectName = "Unknown"

// Identity is the subject's stable id and display name.
type Identity struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadIdentity reads the identity file at path, creating it with a fresh id
// when it does not exist. A non-empty name replaces the stored one. The file
// is rewritten whenever the id is generated or the name changes.
func LoadIdentity(path, name string) (Identity, error) {
	var id Identity
	dirty := false

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &id); err != nil {
			return Identity{}, fmt.Errorf("parsing identity file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Identity{}, fmt.Errorf("reading identity file: %w", err)
	}

	if id.ID == "" {
		id.ID = uuid.NewString()
		dirty = true
	} else if _, err := uuid.Parse(id.ID); err != nil {
		return Identity{}, fmt.Errorf("%w: id %q: %w", ErrInvalidIdentity, id.ID, err)
	}

	if name = strings.TrimSpace(name); name != "" && name != id.Name {
		id.Name = name
		dirty = true
	}
	if id.Name == "" {
		id.Name = DefaultSubjectName
	}

	if dirty {
		if err := saveIdentity(path, id); err != nil {
			return Identity{}, err
		}
	}
	return id, nil
}

func saveIdentity(path string, id Identity) error {
	data, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}
