// Package menu holds the static service catalog, the text intent
// classifier, and the reply composer for the Refurbyte chat menu.
package menu

// Service describes one entry of the closed six-item catalog.
type Service struct {
	// Key is the short menu code the customer replies with ("1".."6").
	Key string
	// Keycap is the emoji digit shown in the main menu listing.
	Keycap string
	// MenuLabel is the main-menu line text; it may differ from Title
	// (key 5 historically reads "or" in the menu and "/" in the submenu).
	MenuLabel string
	// Title heads the submenu block and is recorded as the sender's last service.
	Title string
	// Lines are the submenu body, without the return-to-menu footer.
	Lines []string
}

// Catalog is the fixed, ordered set of services. The order is the
// classification priority and the main-menu display order.
var Catalog = []Service{
	{
		Key:       "1",
		Keycap:    "1️⃣",
		MenuLabel: "Refurbished PCs",
		Title:     "Refurbished PCs",
		Lines: []string{
			"💻 Budget Office PCs from £120",
			"🎮 Mid-range Gaming PCs from £350",
			"⚡ High-end Builds from £700+",
		},
	},
	{
		Key:       "2",
		Keycap:    "2️⃣",
		MenuLabel: "PC Repairs & Diagnostics",
		Title:     "PC Repairs & Diagnostics",
		Lines: []string{
			"🧠 Full System Diagnostics - £25",
			"🔧 Repairs (quote after inspection)",
			"💨 Cleaning & Maintenance - from £20",
		},
	},
	{
		Key:       "3",
		Keycap:    "3️⃣",
		MenuLabel: "Hardware Upgrades",
		Title:     "Hardware Upgrades",
		Lines: []string{
			"🪛 RAM / SSD Upgrades",
			"🔋 PSU / GPU Replacement",
			"📈 Performance Optimization",
		},
	},
	{
		Key:       "4",
		Keycap:    "4️⃣",
		MenuLabel: "Custom Gaming Builds",
		Title:     "Custom Gaming Builds",
		Lines: []string{
			"🎮 Custom Spec Consultation - Free",
			"🧩 Budget to Performance Optimized",
			"🚀 Delivery & Setup Options",
		},
	},
	{
		Key:       "5",
		Keycap:    "5️⃣",
		MenuLabel: "Trade-In or Recycle",
		Title:     "Trade-In / Recycle",
		Lines: []string{
			"♻️ Trade your old PC for credit",
			"🖥️ Free eco-friendly disposal",
		},
	},
	{
		Key:       "6",
		Keycap:    "6️⃣",
		MenuLabel: "Contact & Support",
		Title:     "Contact & Support",
		Lines: []string{
			"📞 WhatsApp us anytime",
			"📧 support@refurbyte.com",
			"📍 Leicester, UK",
		},
	},
}

// Lookup returns the catalog entry for a menu key.
func Lookup(key string) (Service, bool) {
	for _, svc := range Catalog {
		if svc.Key == key {
			return svc, true
		}
	}
	return Service{}, false
}
