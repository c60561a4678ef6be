package model

// Listing is a rentable or sellable property, stored in the `boarding`
// table.  Institutions, Images and Amenities are ordered lists here; their
// joined-string storage form never leaves the repository package.
type Listing struct {
	ID           uint64
	LandlordID   uint64 // 0 for admin-authored listings
	Name         string
	Location     string
	Price        string // free text; a legacy SQLite INTEGER column may normalize numeric input
	Phone        string
	Institutions []string
	Distance     string
	Images       []string // generated filenames, never paths
	MapURL       string
	Amenities    []string
	Verified     bool // written with its default, not read by any operation
	Clicks       int64
	Status       string
	Category     Category
	Details      string
}

// ListingUpdate is the subset of fields an edit may change.
type ListingUpdate struct {
	Name     string
	Price    string
	Location string
	Details  string
	Status   string
	Category Category
}

// ListingFilter restricts List.  Empty fields, or the "all" sentinels, mean
// no restriction on that dimension.
type ListingFilter struct {
	Institution string
	Category    string
}

// OwnerStats summarizes a landlord's listings for the dashboard.
type OwnerStats struct {
	Listings    int
	TotalClicks int64
}
