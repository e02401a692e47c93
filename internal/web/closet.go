package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/tryon/internal/draft"
	"github.com/erazemk/tryon/internal/imaging"
	"github.com/erazemk/tryon/internal/model"
)

// closetView is the search and filter state carried between closet requests.
type closetView struct {
	Text     string
	Category model.Category
}

// viewFrom reads the view from the closet page query, or from the hidden
// q and filter fields of the workflow forms.
func viewFrom(r *http.Request) closetView {
	text := r.FormValue("q")
	raw := r.URL.Query().Get("category")
	if r.Method == http.MethodPost {
		raw = r.FormValue("filter")
	}
	category, err := model.ParseCategoryFilter(raw)
	if err != nil {
		category = model.AllCategories
	}
	return closetView{Text: text, Category: category}
}

// URL returns the closet page address for the view.
func (v closetView) URL() string {
	q := url.Values{}
	if v.Text != "" {
		q.Set("q", v.Text)
	}
	if v.Category != model.AllCategories {
		q.Set("category", v.Category.String())
	}
	if len(q) == 0 {
		return "/closet"
	}
	return "/closet?" + q.Encode()
}

type chip struct {
	Label  string
	URL    string
	Active bool
}

func (v closetView) chips() []chip {
	all := append([]model.Category{model.AllCategories}, model.Categories...)
	chips := make([]chip, len(all))
	for i, c := range all {
		chips[i] = chip{
			Label:  c.String(),
			URL:    closetView{Text: v.Text, Category: c}.URL(),
			Active: c == v.Category,
		}
	}
	return chips
}

// ClosetPage handles GET /closet.
func (s *Server) ClosetPage(w http.ResponseWriter, r *http.Request) {
	s.renderCloset(w, r, http.StatusOK, "")
}

func (s *Server) renderCloset(w http.ResponseWriter, r *http.Request, status int, message string) {
	c := s.Sessions.Closet(GetWebSession(r.Context()))
	view := viewFrom(r)

	pd := s.page(r, "Smart Closet")
	pd.Error = message
	pd.Nav = navLinks("/closet")
	pd.Return = view.URL()

	s.Templates.RenderStatus(w, status, "closet.html", &struct {
		PageData
		View         closetView
		Filter       string
		Chips        []chip
		Items        []model.ClothingItem
		Total        int
		Editing      bool
		Draft        draft.Draft
		ImagePending bool
	}{
		PageData:     pd,
		View:         view,
		Filter:       view.Category.String(),
		Chips:        view.chips(),
		Items:        c.Catalog.VisibleItems(model.Query{Text: view.Text, Category: view.Category}),
		Total:        c.Catalog.Len(),
		Editing:      c.AddItem.State() == draft.Editing,
		Draft:        c.AddItem.Draft(),
		ImagePending: c.AddItem.ImagePending(),
	})
}

// AddItemOpen handles POST /closet/add.
func (s *Server) AddItemOpen(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Closet(GetWebSession(r.Context())).AddItem.Open()
	http.Redirect(w, r, viewFrom(r).URL(), http.StatusSeeOther)
}

// AddItemCancel handles POST /closet/add/cancel.
func (s *Server) AddItemCancel(w http.ResponseWriter, r *http.Request) {
	if err := parseDraftForm(w, r); err != nil {
		slog.Warn("failed to parse add-item form", "error", err)
	}
	s.Sessions.Closet(GetWebSession(r.Context())).AddItem.Cancel()
	http.Redirect(w, r, viewFrom(r).URL(), http.StatusSeeOther)
}

// parseDraftForm reads the add-item form. It is multipart, since it also
// carries the image input, but plain form posts are accepted too.
func parseDraftForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxInputBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxInputBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// formImage returns the chosen image file, or nil when none was chosen.
func formImage(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if header.Size == 0 {
		return nil, nil
	}
	return io.ReadAll(file)
}

// stageImage encodes data off the request goroutine and stages it on the
// draft. If another image is chosen meanwhile, the later choice wins.
func stageImage(r *http.Request, wf *draft.Workflow, data []byte) error {
	ticket, err := wf.SelectImage()
	if err != nil {
		return err
	}
	res := <-imaging.EncodeAsync(r.Context(), data)
	if !wf.CompleteImage(ticket, res.DataURL, res.Err) && res.Err != nil {
		return res.Err
	}
	return nil
}

const badImageMessage = "Could not use that image. Try a JPEG, PNG, or WebP file."

// AddItemFields handles POST /closet/add/fields. The form carries every
// field; a "tag" button toggles one tag and action=submit commits the draft.
// A chosen image is staged before submitting.
func (s *Server) AddItemFields(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())
	wf := s.Sessions.Closet(sess).AddItem

	if err := parseDraftForm(w, r); err != nil {
		s.renderCloset(w, r, http.StatusBadRequest, "Image is too large.")
		return
	}
	view := viewFrom(r)

	if wf.State() != draft.Editing {
		http.Redirect(w, r, view.URL(), http.StatusSeeOther)
		return
	}

	if err := applyFields(wf, r); err != nil {
		s.renderCloset(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := formImage(r)
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		s.renderCloset(w, r, http.StatusBadRequest, "Could not read the image.")
		return
	}
	if data != nil {
		if err := stageImage(r, wf, data); err != nil && !errors.Is(err, draft.ErrNotEditing) {
			slog.Warn("image encoding failed", "user", sess.Email, "error", err)
			s.renderCloset(w, r, http.StatusBadRequest, badImageMessage)
			return
		}
	}

	if r.FormValue("action") == "submit" {
		item, err := wf.Submit()
		if errors.Is(err, draft.ErrNotEditing) {
			http.Redirect(w, r, view.URL(), http.StatusSeeOther)
			return
		}
		if err != nil {
			s.renderCloset(w, r, http.StatusBadRequest, validationMessage(err))
			return
		}
		slog.Info("item added", "user", sess.Email, "item", item.Name, "id", item.ID)
	}

	http.Redirect(w, r, view.URL(), http.StatusSeeOther)
}

func applyFields(wf *draft.Workflow, r *http.Request) error {
	if err := wf.SetName(r.FormValue("name")); err != nil {
		return err
	}
	if raw := r.FormValue("category"); raw != "" {
		c, err := model.ParseCategory(raw)
		if err != nil {
			return draft.ErrInvalidCategory
		}
		if err := wf.SetCategory(c); err != nil {
			return err
		}
	}
	if err := wf.SetFavorite(r.FormValue("favorite") != ""); err != nil {
		return err
	}
	if raw := r.FormValue("tag"); raw != "" {
		t, err := model.ParseTag(raw)
		if err != nil {
			return err
		}
		if err := wf.ToggleTag(t); err != nil {
			return err
		}
	}
	return nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, draft.ErrNameRequired):
		return "Please enter a name for the item."
	case errors.Is(err, draft.ErrInvalidCategory):
		return "Please choose a category."
	default:
		return err.Error()
	}
}

// AddItemImage handles POST /closet/add/image. Field values posted with the
// image are kept on the draft.
func (s *Server) AddItemImage(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())
	wf := s.Sessions.Closet(sess).AddItem

	if err := parseDraftForm(w, r); err != nil {
		s.renderCloset(w, r, http.StatusBadRequest, "Image is too large.")
		return
	}
	view := viewFrom(r)

	if wf.State() != draft.Editing {
		http.Redirect(w, r, view.URL(), http.StatusSeeOther)
		return
	}
	if err := applyFields(wf, r); err != nil {
		s.renderCloset(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := formImage(r)
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		s.renderCloset(w, r, http.StatusBadRequest, "Could not read the image.")
		return
	}
	if data == nil {
		s.renderCloset(w, r, http.StatusBadRequest, "Please choose an image.")
		return
	}

	if err := stageImage(r, wf, data); err != nil {
		if errors.Is(err, draft.ErrNotEditing) {
			http.Redirect(w, r, view.URL(), http.StatusSeeOther)
			return
		}
		slog.Warn("image encoding failed", "user", sess.Email, "error", err)
		s.renderCloset(w, r, http.StatusBadRequest, badImageMessage)
		return
	}

	http.Redirect(w, r, view.URL(), http.StatusSeeOther)
}

// AddItemClearImage handles POST /closet/add/image/clear.
func (s *Server) AddItemClearImage(w http.ResponseWriter, r *http.Request) {
	wf := s.Sessions.Closet(GetWebSession(r.Context())).AddItem

	if err := parseDraftForm(w, r); err != nil {
		slog.Warn("failed to parse add-item form", "error", err)
	}
	if wf.State() == draft.Editing {
		if err := applyFields(wf, r); err != nil {
			s.renderCloset(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := wf.ClearImage(); err != nil && !errors.Is(err, draft.ErrNotEditing) {
			slog.Error("failed to clear image", "error", err)
		}
	}
	http.Redirect(w, r, viewFrom(r).URL(), http.StatusSeeOther)
}
