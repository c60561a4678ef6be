package model

// School is an institution listings are searched by.  Listings refer to it
// by name, not id.
type School struct {
	ID     uint64
	Name   string
	MapURL string
}
