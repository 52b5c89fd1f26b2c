package menu

import (
	"strings"
	"testing"
)

func TestComposeMainMenuGolden(t *testing.T) {
	want := strings.Join([]string{
		"📋 *Refurbyte Main Menu*",
		"",
		"1️⃣ Refurbished PCs",
		"2️⃣ PC Repairs & Diagnostics",
		"3️⃣ Hardware Upgrades",
		"4️⃣ Custom Gaming Builds",
		"5️⃣ Trade-In or Recycle",
		"6️⃣ Contact & Support",
		"",
		"Reply with a number (1-6) to explore a service.",
	}, "\n")

	got := Compose(Action{Kind: ActionMainMenu})
	if got != want {
		t.Fatalf("main menu mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestComposeRepairsSubmenuGolden(t *testing.T) {
	want := strings.Join([]string{
		"📂 *PC Repairs & Diagnostics*",
		"",
		"🧠 Full System Diagnostics - £25",
		"🔧 Repairs (quote after inspection)",
		"💨 Cleaning & Maintenance - from £20",
		"",
		"Reply 'menu' to return.",
	}, "\n")

	got := Compose(Action{Kind: ActionService, Key: "2"})
	if got != want {
		t.Fatalf("submenu mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestComposeEverySubmenuEndsWithFooter(t *testing.T) {
	for _, svc := range Catalog {
		got := Compose(Action{Kind: ActionService, Key: svc.Key})
		if !strings.HasPrefix(got, "📂 *"+svc.Title+"*") {
			t.Errorf("submenu %s missing titled header: %q", svc.Key, got)
		}
		if !strings.HasSuffix(got, "\n\nReply 'menu' to return.") {
			t.Errorf("submenu %s missing footer: %q", svc.Key, got)
		}
	}
}

func TestComposeWelcome(t *testing.T) {
	got := Compose(Action{Kind: ActionUnrecognized})
	if got != "👋 Welcome to Refurbyte! Type *menu* to get started." {
		t.Fatalf("unexpected welcome text: %q", got)
	}
}

func TestComposeUnknownServiceKeyDegrades(t *testing.T) {
	got := Compose(Action{Kind: ActionService, Key: "9"})
	if !strings.Contains(got, "Welcome to Refurbyte") {
		t.Fatalf("expected welcome fallback, got %q", got)
	}
}
