package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/catalog"
	"github.com/erazemk/tryon/internal/model"
)

// profileNameFields are tried in order for a display name.
var profileNameFields = []string{"full_name", "display_name", "name", "username"}

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())

	var displayName string
	profile, err := s.Sessions.Account.GetProfile(r.Context(), sess.AccessToken, sess.UserID)
	switch {
	case account.IsNotFound(err):
	case err != nil:
		slog.Error("failed to get profile for dashboard", "user", sess.Email, "error", err)
	default:
		displayName = profileName(profile)
	}

	stats := s.Sessions.Closet(sess).Catalog.Stats()

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		DisplayName string
		Stats       catalog.Stats
		Rows        []statRow
	}{
		PageData:    s.page(r, "Dashboard"),
		DisplayName: displayName,
		Stats:       stats,
		Rows:        statRows(stats),
	})
}

func profileName(p account.Profile) string {
	for _, field := range profileNameFields {
		if name, ok := p[field].(string); ok && name != "" {
			return name
		}
	}
	return ""
}

type statRow struct {
	Category string
	Count    int
}

func statRows(stats catalog.Stats) []statRow {
	rows := make([]statRow, 0, len(stats.ByCategory))
	for _, c := range model.Categories {
		rows = append(rows, statRow{Category: c.String(), Count: stats.ByCategory[c]})
	}
	return rows
}

// ComingSoon handles the sidebar destinations that are not built yet.
func (s *Server) ComingSoon(w http.ResponseWriter, r *http.Request) {
	title, ok := comingSoon[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.Templates.Render(w, "soon.html", &struct{ PageData }{s.page(r, title)})
}
