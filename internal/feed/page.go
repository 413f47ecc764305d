package feed

import (
	"strconv"

	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/story"
)

// Placeholder images.
const (
	PlaceholderNoImage    = "https://via.placeholder.com/150?text=No+Image"
	PlaceholderImageError = "https://via.placeholder.com/150?text=Image+Error"
)

const (
	defaultName        = "Untitled Story"
	defaultDescription = "No description available."
)

// ImageSource says where an Item's Image came from.
type ImageSource string

const (
	ImageReference   ImageSource = "reference"
	ImageURL         ImageSource = "url"
	ImagePlaceholder ImageSource = "placeholder"
)

// Item is one rendered story.
type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	Image       string      `json:"image"`
	ImageSource ImageSource `json:"imageSource"`
	Lat         *float64    `json:"lat,omitempty"`
	Lon         *float64    `json:"lon,omitempty"`
	Synced      bool        `json:"synced"`
	OriginalID  string      `json:"originalId,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (i Item) HasLocation() bool {
	return i.Lat != nil && i.Lon != nil
}

// Page is a rendered view.
type Page struct {
	View    string `json:"view"`
	Origin  Origin `json:"origin"`
	Items   []Item `json:"items"`
	Located int    `json:"located"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newPage(view string, origin Origin) Page {
	return Page{View: view, Origin: origin, Items: []Item{}}
}

func (p *Page) add(item Item) {
	p.Items = append(p.Items, item)
	if item.HasLocation() {
		p.Located++
	}
}

func remoteItem(s remote.Story) Item {
	item := Item{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		Image:       PlaceholderNoImage,
		ImageSource: ImagePlaceholder,
		Lat:         s.Lat,
		Lon:         s.Lon,
		Synced:      true,
		OriginalID:  s.ID,
	}
	if item.Name == "" {
		item.Name = defaultName
	}
	if item.Description == "" {
		item.Description = defaultDescription
	}
	if s.PhotoURL != "" {
		item.Image, item.ImageSource = s.PhotoURL, ImageURL
	}
	return item
}

// localItem renders r, creating a media reference in scope when the record
// holds photo bytes. A payload the scope rejects gets the error placeholder
// and the second return value reports the failure.
func localItem(scope *media.Scope, r story.Record) (Item, error) {
	item := Item{
		ID:          strconv.FormatInt(r.ID, 10),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Synced:      r.IsSynced(),
	}
	if r.Name != nil {
		item.Name = *r.Name
	}
	if r.OriginalID != nil {
		item.OriginalID = *r.OriginalID
	}
	if item.Description == "" {
		item.Description = defaultDescription
	}

	switch {
	case r.Photo != nil:
		handle, err := scope.CreateReference(r.Photo)
		if err != nil {
			item.Image, item.ImageSource = PlaceholderImageError, ImagePlaceholder
			return item, err
		}
		item.Image, item.ImageSource = handle, ImageReference
	case r.PhotoURL != nil && *r.PhotoURL != "":
		item.Image, item.ImageSource = *r.PhotoURL, ImageURL
	default:
		item.Image, item.ImageSource = PlaceholderNoImage, ImagePlaceholder
	}
	return item, nil
}
