package menu

import "strings"

// ActionKind distinguishes the three possible navigation outcomes.
type ActionKind int

const (
	// ActionUnrecognized means the text matched nothing; reply with the welcome hint.
	ActionUnrecognized ActionKind = iota
	// ActionMainMenu means the full menu listing should be sent.
	ActionMainMenu
	// ActionService means one submenu should be sent; Key identifies it.
	ActionService
)

// Action is the result of classifying one inbound text.
type Action struct {
	Kind ActionKind
	// Key is set only for ActionService.
	Key string
}

// Classify maps raw inbound text to a navigation action. It is a total
// function: every input yields an action, never an error.
//
// Matching is deliberately substring-based, not exact: "menu" anywhere in
// the text wins first, then digits "1".."6" are scanned in catalog order
// and the first digit present anywhere in the text wins ("13" selects
// service 1, "21" also selects service 1). This mirrors the long-standing
// production behaviour; do not tighten it to whole-word matching.
func Classify(raw string) Action {
	text := strings.ToLower(strings.TrimSpace(raw))

	if strings.Contains(text, "menu") {
		return Action{Kind: ActionMainMenu}
	}

	for _, svc := range Catalog {
		if strings.Contains(text, svc.Key) {
			return Action{Kind: ActionService, Key: svc.Key}
		}
	}

	return Action{Kind: ActionUnrecognized}
}
