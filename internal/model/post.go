package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// ID is a row identifier. Backends hand these out either as numbers
// (bigint identity columns) or strings (uuid), so both decode into a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type Post struct {
	ID        ID        `json:"id"`
	AuthorID  string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Author is filled when the backend joins the profiles table.
	Author *Profile `json:"profiles,omitempty"`
}

type NewPost struct {
	AuthorID string `json:"user_id"`
	Content  string `json:"content"`
}
