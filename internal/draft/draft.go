// Package draft implements the add-item workflow: a form draft that is
// edited, optionally given an image, and finally committed to a catalog.
package draft

import (
	"errors"
	"strings"
	"sync"

	"github.com/erazemk/tryon/internal/model"
)

// Validation errors. They leave the workflow in Editing.
var (
	ErrNameRequired    = errors.New("name required")
	ErrInvalidCategory = errors.New("a valid category is required")
)

// ErrNotEditing is returned by draft operations while the workflow is idle.
var ErrNotEditing = errors.New("add-item workflow is not open")

// State is the workflow state.
type State int

// Workflow states. Submitted and Cancelled are outcomes; the workflow rests
// in Idle after either.
const (
	Idle State = iota
	Editing
	Submitted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitted:
		return "submitted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Draft is the uncommitted form state.
type Draft struct {
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Tags     model.TagSet   `json:"tags"`
	Image    string         `json:"image,omitempty"`
	Favorite bool           `json:"favorite"`
}

// New returns an empty draft with the default category.
func New() Draft {
	return Draft{Category: model.DefaultCategory}
}

// Validate checks the fields required for submission.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrNameRequired
	}
	if !d.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// Item validates the draft and converts it into a catalog entry, using the
// placeholder image when none is staged.
func (d Draft) Item() (model.NewItem, error) {
	if err := d.Validate(); err != nil {
		return model.NewItem{}, err
	}
	image := d.Image
	if image == "" {
		image = model.PlaceholderImage
	}
	return model.NewItem{
		Name:     strings.TrimSpace(d.Name),
		Category: d.Category,
		Tags:     d.Tags,
		ImageURL: image,
		Favorite: d.Favorite,
	}, nil
}

// Adder receives submitted items.
type Adder interface {
	Add(model.NewItem) model.ClothingItem
}

// Ticket identifies one image selection.
type Ticket uint64

// Workflow drives a single draft through Idle -> Editing -> Submitted |
// Cancelled. It is safe for concurrent use.
type Workflow struct {
	mu      sync.Mutex
	catalog Adder
	state   State
	draft   Draft

	// Last issued image ticket and whether it is still awaiting completion.
	ticket  Ticket
	pending bool
}

// NewWorkflow returns an idle workflow that submits into catalog.
func NewWorkflow(catalog Adder) *Workflow {
	return &Workflow{catalog: catalog}
}

// State returns Idle or Editing.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a copy of the current draft.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// ImagePending reports whether an image selection is still being encoded.
func (w *Workflow) ImagePending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == Editing && w.pending
}

// Open starts editing a fresh draft. Opening an already open workflow keeps
// the current draft.
func (w *Workflow) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Editing {
		return
	}
	w.reset(Editing)
}

// Cancel discards the draft without touching the catalog.
func (w *Workflow) Cancel() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing {
		return w.state
	}
	w.reset(Idle)
	return Cancelled
}

// SetName sets the item name.
func (w *Workflow) SetName(name string) error {
	return w.edit(func(d *Draft) error {
		d.Name = name
		return nil
	})
}

// SetCategory sets the item category. The "All" filter value is rejected.
func (w *Workflow) SetCategory(c model.Category) error {
	return w.edit(func(d *Draft) error {
		if !c.Valid() {
			return ErrInvalidCategory
		}
		d.Category = c
		return nil
	})
}

// SetFavorite sets the favorite flag.
func (w *Workflow) SetFavorite(favorite bool) error {
	return w.edit(func(d *Draft) error {
		d.Favorite = favorite
		return nil
	})
}

// ToggleTag flips tag's membership in the draft.
func (w *Workflow) ToggleTag(tag model.Tag) error {
	return w.edit(func(d *Draft) error {
		d.Tags = d.Tags.Toggle(tag)
		return nil
	})
}

// SelectImage starts a new image selection and returns its ticket. Any
// earlier selection that has not completed yet is superseded.
func (w *Workflow) SelectImage() (Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing {
		return 0, ErrNotEditing
	}
	w.ticket++
	w.pending = true
	return w.ticket, nil
}

// CompleteImage delivers the encoded image for a selection. Only the latest
// ticket is applied; stale completions are dropped and report false. A failed
// encoding leaves the staged image untouched.
func (w *Workflow) CompleteImage(t Ticket, dataURL string, encodeErr error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing || !w.pending || t != w.ticket {
		return false
	}
	w.pending = false
	if encodeErr != nil {
		return false
	}
	w.draft.Image = dataURL
	return true
}

// ClearImage removes the staged image and abandons any pending selection.
func (w *Workflow) ClearImage() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing {
		return ErrNotEditing
	}
	w.ticket++
	w.pending = false
	w.draft.Image = ""
	return nil
}

// Submit validates the draft and adds it to the catalog. On validation
// failure the workflow stays in Editing and the catalog is not touched.
func (w *Workflow) Submit() (model.ClothingItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing {
		return model.ClothingItem{}, ErrNotEditing
	}

	item, err := w.draft.Item()
	if err != nil {
		return model.ClothingItem{}, err
	}

	stored := w.catalog.Add(item)
	w.reset(Idle)
	return stored, nil
}

func (w *Workflow) edit(fn func(*Draft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Editing {
		return ErrNotEditing
	}
	return fn(&w.draft)
}

// reset must be called with mu held. Bumping the ticket invalidates any
// encoding still in flight for the old draft.
func (w *Workflow) reset(state State) {
	w.state = state
	w.draft = New()
	w.ticket++
	w.pending = false
}
