package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/erazemk/tryon/internal/draft"
	"github.com/erazemk/tryon/internal/imaging"
	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/session"
)

// maxCreateBody fits a base64 image of imaging.MaxInputBytes plus the other
// fields.
const maxCreateBody = (imaging.MaxInputBytes+2)/3*4 + 64<<10

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	Sessions *session.Manager
}

type createItemRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Image    string   `json:"image"`
	Favorite bool     `json:"favorite"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	category, err := model.ParseCategoryFilter(r.URL.Query().Get("category"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := h.Sessions.Closet(GetSession(r.Context()))
	items := c.Catalog.VisibleItems(model.Query{
		Text:     r.URL.Query().Get("q"),
		Category: category,
	})
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. An optional image is sent as a base64
// data:image URL and goes through the same processing as web uploads.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := req.draft()
	if err == nil {
		err = d.Validate()
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Image != "" {
		d.Image, err = processImage(req.Image)
		if errors.Is(err, imaging.ErrTooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	newItem, err := d.Item()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := h.Sessions.Closet(GetSession(r.Context()))
	jsonResponse(w, http.StatusCreated, c.Catalog.Add(newItem))
}

func (req createItemRequest) draft() (draft.Draft, error) {
	d := draft.New()
	d.Name = req.Name
	d.Favorite = req.Favorite

	if req.Category != "" {
		c, err := model.ParseCategory(req.Category)
		if err != nil {
			return d, draft.ErrInvalidCategory
		}
		d.Category = c
	}

	for _, name := range req.Tags {
		t, err := model.ParseTag(name)
		if err != nil {
			return d, err
		}
		d.Tags = d.Tags.With(t)
	}

	return d, nil
}

// processImage decodes a base64 data:image URL and re-encodes it as the
// inline JPEG stored on items.
func processImage(dataURL string) (string, error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return "", errors.New("image must be a base64 data:image URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	return imaging.EncodeDataURL(bytes.NewReader(data))
}

type categoriesResponse struct {
	Categories []model.Category `json:"categories"`
	Tags       []model.Tag      `json:"tags"`
}

// Categories handles GET /api/categories.
func (h *ItemsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, categoriesResponse{
		Categories: model.Categories,
		Tags:       model.Tags,
	})
}
