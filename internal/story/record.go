package story

import "time"

// TimeLayout is the ISO-8601 layout used for CreatedAt, matching the
// millisecond UTC form produced by browsers.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Record is a persisted story.
//
// Photo holds the raw image bytes when the story was captured locally or
// its image was downloaded at save time; nil means null. PhotoURL points at
// a still-remote image. Synced and OriginalID are set for records that
// mirror a remote story.
type Record struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Photo       []byte   `json:"photo"`
	PhotoURL    *string  `json:"photoUrl,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Synced      *bool    `json:"synced,omitempty"`
	OriginalID  *string  `json:"originalId,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (r Record) HasLocation() bool {
	return r.Lat != nil && r.Lon != nil
}

// IsSynced reports whether the record mirrors a remote story.
func (r Record) IsSynced() bool {
	return r.Synced != nil && *r.Synced
}
