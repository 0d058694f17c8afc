// Package content loads training modules from disk. A module file holds its
// workshops; a workshop carries either a single grader source or a set of
// named approaches each with its own grader.
package content

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"skillbuilder/pkg/errors"
)

// Workshop is one exercise inside a module.
type Workshop struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Tests is the grader source for single-approach workshops.
	Tests string `json:"tests"`
	// Approaches is set instead of Tests when the workshop can be solved
	// several ways, each graded differently.
	Approaches     []Approach        `json:"approaches,omitempty"`
	Visualizations []json.RawMessage `json:"visualizations,omitempty"`
}

// Approach is one named solution style with its own grader.
type Approach struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tests string `json:"tests"`
}

// Module is a set of workshops.
type Module struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Workshops []Workshop `json:"workshops"`
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Repository reads module content from a directory of JSON files. It holds
// no cache: content is operator-editable and small.
type Repository struct {
	dir string
}

// NewRepository creates a repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Index returns the raw module catalog.
func (r *Repository) Index() (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, "module_index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ModuleNotFound).WithMessage("module catalog not found")
		}
		return nil, errors.Wrap(err, errors.ContentLoadFailed)
	}
	return json.RawMessage(data), nil
}

// Raw returns the module file verbatim, for passthrough endpoints.
func (r *Repository) Raw(moduleID string) (json.RawMessage, error) {
	data, err := r.read(moduleID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Module loads and decodes one module.
func (r *Repository) Module(moduleID string) (*Module, error) {
	data, err := r.read(moduleID)
	if err != nil {
		return nil, err
	}
	var mod Module
	if err := json.Unmarshal(data, &mod); err != nil {
		return nil, errors.Wrap(err, errors.ContentInvalid).WithDetail("module", moduleID)
	}
	if mod.ID == "" {
		mod.ID = moduleID
	}
	return &mod, nil
}

// GraderSource resolves the grader for a workshop, honoring the approach
// selection rules: multi-approach workshops require an approach id,
// single-approach workshops ignore it.
func (r *Repository) GraderSource(moduleID, workshopID, approachID string) (string, *Workshop, error) {
	mod, err := r.Module(moduleID)
	if err != nil {
		return "", nil, err
	}

	var ws *Workshop
	for i := range mod.Workshops {
		if mod.Workshops[i].ID == workshopID {
			ws = &mod.Workshops[i]
			break
		}
	}
	if ws == nil {
		return "", nil, errors.New(errors.WorkshopNotFound).WithDetail("workshop", workshopID)
	}

	if len(ws.Approaches) == 0 {
		if ws.Tests == "" {
			return "", nil, errors.New(errors.GraderSourceEmpty).WithDetail("workshop", workshopID)
		}
		return ws.Tests, ws, nil
	}

	if approachID == "" {
		return "", nil, errors.New(errors.ApproachRequired).WithDetail("workshop", workshopID)
	}
	for _, a := range ws.Approaches {
		if a.ID == approachID {
			if a.Tests == "" {
				return "", nil, errors.New(errors.GraderSourceEmpty).WithDetail("approach", approachID)
			}
			return a.Tests, ws, nil
		}
	}
	return "", nil, errors.New(errors.ApproachNotFound).WithDetail("approach", approachID)
}

func (r *Repository) read(moduleID string) ([]byte, error) {
	if !idPattern.MatchString(moduleID) {
		return nil, errors.New(errors.InvalidParams).WithDetail("module", moduleID)
	}
	data, err := os.ReadFile(filepath.Join(r.dir, moduleID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ModuleNotFound).WithDetail("module", moduleID)
		}
		return nil, errors.Wrap(err, errors.ContentLoadFailed).WithDetail("module", moduleID)
	}
	return data, nil
}
