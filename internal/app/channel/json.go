package channel

import (
	"encoding/json"
	"time"

	"github.com/pixeltrip/tripboard/internal/domain"
)

// MarshalJSON flattens the record: the value's fields plus id, createdAt and updatedAt.
func (r Record[T]) MarshalJSON() ([]byte, error) {
	fields, err := Encode(r.Value)
	if err != nil {
		return nil, err
	}
	fields["id"] = r.ID
	fields["createdAt"] = r.CreatedAt
	fields["updatedAt"] = r.UpdatedAt
	return json.Marshal(fields)
}

func (r *Record[T]) UnmarshalJSON(b []byte) error {
	var meta struct {
		ID        domain.RecordID `json:"id"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r.ID, r.CreatedAt, r.UpdatedAt, r.Value = meta.ID, meta.CreatedAt, meta.UpdatedAt, v
	return nil
}
