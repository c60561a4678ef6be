package model

// Landlord mirrors the `landlords` table.  Phone is the login handle and
// unique natural key.
type Landlord struct {
	ID               uint64
	Name             string
	Phone            string
	PasswordHash     string
	SecurityQuestion string
	SecurityAnswer   string // bcrypt hash of the normalized answer
}
