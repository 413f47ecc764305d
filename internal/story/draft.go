package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned by ParseDraft when the document is not a JSON
// object (null, a primitive, or an array).
var ErrNotObject = errors.New("story data must be an object")

// Draft is a candidate record handed to the store's save operation.
//
// ID, Description, Photo and CreatedAt carry key presence so the store can
// tell a missing key from an explicit null. Callers in this system never set
// ID; an explicit ID exists so imports can restore a known key.
type Draft struct {
	ID          Field[int64]  `json:"id,omitzero"`
	Description Field[string] `json:"description,omitzero"`
	Photo       Field[[]byte] `json:"photo,omitzero"`
	PhotoURL    *string       `json:"photoUrl,omitempty"`
	Name        *string       `json:"name,omitempty"`
	Lat         *float64      `json:"lat,omitempty"`
	Lon         *float64      `json:"lon,omitempty"`
	CreatedAt   Field[string] `json:"createdAt,omitzero"`
	Synced      *bool         `json:"synced,omitempty"`
	OriginalID  *string       `json:"originalId,omitempty"`
}

// ParseDraft decodes a JSON document into a Draft, keeping key presence.
// The photo value is base64 text or null.
func ParseDraft(data []byte) (Draft, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Draft{}, ErrNotObject
	}
	var d Draft
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// Record builds the record a draft describes. The ID is left zero; the
// store assigns it.
func (d Draft) Record() Record {
	desc, _ := d.Description.Get()
	photo, _ := d.Photo.Get()
	createdAt, _ := d.CreatedAt.Get()

	r := Record{
		Description: desc,
		PhotoURL:    cloneString(d.PhotoURL),
		Name:        cloneString(d.Name),
		Lat:         cloneFloat(d.Lat),
		Lon:         cloneFloat(d.Lon),
		CreatedAt:   createdAt,
		Synced:      cloneBool(d.Synced),
		OriginalID:  cloneString(d.OriginalID),
	}
	r.Photo = bytes.Clone(photo)
	return r
}

// Ptr returns a pointer to v. Handy for the optional Draft fields.
func Ptr[T any](v T) *T {
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	return Ptr(*p)
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Ptr(*p)
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	return Ptr(*p)
}
