package models

// Contact is the public contact card shown on the site.
type Contact struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Instagram string `json:"instagram"`
	Website   string `json:"website"`
}

// Settings is the site-wide settings document.
type Settings struct {
	Contact Contact `json:"contact"`
}

// DefaultSettings is served when no settings document has been stored yet.
func DefaultSettings() Settings {
	return Settings{
		Contact: Contact{
			Phone:     "+90 5XX XXX XX XX",
			Email:     "studio@mutena.com",
			Address:   "İstanbul / Türkiye",
			Instagram: "@fotomutena",
			Website:   "www.mutena.com",
		},
	}
}
