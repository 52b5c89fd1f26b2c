package menu

import "strings"

const (
	mainMenuHeader = "📋 *Refurbyte Main Menu*"
	mainMenuFooter = "Reply with a number (1-6) to explore a service."
	submenuFooter  = "Reply 'menu' to return."
	welcomeText    = "👋 Welcome to Refurbyte! Type *menu* to get started."
)

// Compose renders the outbound message body for a navigation action.
// Lookups never fail for actions produced by Classify; an unknown service
// key degrades to the welcome text rather than an error.
func Compose(action Action) string {
	switch action.Kind {
	case ActionMainMenu:
		return composeMainMenu()
	case ActionService:
		svc, ok := Lookup(action.Key)
		if !ok {
			return welcomeText
		}
		return composeSubmenu(svc)
	default:
		return welcomeText
	}
}

func composeMainMenu() string {
	lines := make([]string, 0, len(Catalog)+4)
	lines = append(lines, mainMenuHeader, "")
	for _, svc := range Catalog {
		lines = append(lines, svc.Keycap+" "+svc.MenuLabel)
	}
	lines = append(lines, "", mainMenuFooter)
	return strings.Join(lines, "\n")
}

func composeSubmenu(svc Service) string {
	lines := make([]string, 0, len(svc.Lines)+4)
	lines = append(lines, "📂 *"+svc.Title+"*", "")
	lines = append(lines, svc.Lines...)
	lines = append(lines, "", submenuFooter)
	return strings.Join(lines, "\n")
}
