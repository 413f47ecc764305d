package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/taleweaver/internal/story"
)

// document is the stored form of a record. The id is the substrate key and
// is not repeated in the value.
type document struct {
	Description string   `msgpack:"description"`
	Photo       []byte   `msgpack:"photo"`
	PhotoURL    *string  `msgpack:"photoUrl,omitempty"`
	Name        *string  `msgpack:"name,omitempty"`
	Lat         *float64 `msgpack:"lat,omitempty"`
	Lon         *float64 `msgpack:"lon,omitempty"`
	CreatedAt   string   `msgpack:"createdAt"`
	Synced      *bool    `msgpack:"synced,omitempty"`
	OriginalID  *string  `msgpack:"originalId,omitempty"`
}

func marshalRecord(r story.Record) ([]byte, error) {
	data, err := msgpack.Marshal(document{
		Description: r.Description,
		Photo:       r.Photo,
		PhotoURL:    r.PhotoURL,
		Name:        r.Name,
		Lat:         r.Lat,
		Lon:         r.Lon,
		CreatedAt:   r.CreatedAt,
		Synced:      r.Synced,
		OriginalID:  r.OriginalID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

func unmarshalRecord(key int64, data []byte) (story.Record, error) {
	var doc document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return story.Record{}, fmt.Errorf("unmarshal record %d: %w", key, err)
	}
	return story.Record{
		ID:          key,
		Description: doc.Description,
		Photo:       doc.Photo,
		PhotoURL:    doc.PhotoURL,
		Name:        doc.Name,
		Lat:         doc.Lat,
		Lon:         doc.Lon,
		CreatedAt:   doc.CreatedAt,
		Synced:      doc.Synced,
		OriginalID:  doc.OriginalID,
	}, nil
}
