package models

// Specs carries descriptive metadata shown next to an item. Photos use the
// camera fields, designs use the tool fields. Values are not validated.
type Specs struct {
	ISO      string `json:"iso,omitempty"`
	Shutter  string `json:"shutter,omitempty"`
	Aperture string `json:"aperture,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Version  string `json:"version,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Record is a single photo or design entry of a collection.
type Record struct {
	ID          string   `json:"id" binding:"required"`
	URL         string   `json:"url" binding:"required"`
	Title       string   `json:"title,omitempty"`
	Alt         string   `json:"alt,omitempty"`
	Category    string   `json:"category,omitempty"`
	AspectRatio *float64 `json:"aspectRatio,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	Specs       *Specs   `json:"specs,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Label returns the display label, preferring the title over the legacy alt text.
func (r Record) Label() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Alt
}
