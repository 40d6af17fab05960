package decision

import "strings"

// action synonyms seen from LLM-style collaborators
var actionAliases = map[string]string{
	"buy":        ActionBuy,
	"long":       ActionBuy,
	"open_long":  ActionBuy,
	"sell":       ActionSell,
	"short":      ActionSell,
	"exit":       ActionSell,
	"close":      ActionSell,
	"close_long": ActionSell,
	"hold":       ActionHold,
	"wait":       ActionHold,
	"none":       ActionHold,
	"no_action":  ActionHold,
}

// NormalizeAction maps a raw action string onto BUY/SELL/HOLD.
// Unknown input returns "" so the caller can degrade explicitly.
func NormalizeAction(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	if canonical, ok := actionAliases[key]; ok {
		return canonical
	}
	return ""
}
