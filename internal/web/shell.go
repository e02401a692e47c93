package web

// NavLink is one sidebar entry.
type NavLink struct {
	Label  string
	Path   string
	Active bool
}

var sidebar = []NavLink{
	{Label: "Dashboard", Path: "/"},
	{Label: "Smart Closet", Path: "/closet"},
	{Label: "Outfit Planner", Path: "/planner"},
	{Label: "AI Stylist", Path: "/stylist"},
	{Label: "Analytics", Path: "/analytics"},
}

// navLinks returns the sidebar with the entry for path marked active.
func navLinks(path string) []NavLink {
	links := make([]NavLink, len(sidebar))
	copy(links, sidebar)
	for i := range links {
		links[i].Active = links[i].Path == path
	}
	return links
}

// comingSoon maps the sidebar destinations that are not built yet to their
// page titles.
var comingSoon = map[string]string{
	"/planner":   "Outfit Planner",
	"/stylist":   "AI Stylist",
	"/analytics": "Analytics",
}
