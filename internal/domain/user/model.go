package user

import "time"

// User is the local record of a messenger sender.
// ExternalID is the page-scoped sender ID assigned by the platform; it is the
// unique key and never changes. FirstName and LastName are reserved for
// profile enrichment and are left empty on creation.
type User struct {
	ExternalID string    `json:"external_id" bson:"externalId"`
	FirstName  string    `json:"first_name,omitempty" bson:"firstName,omitempty"`
	LastName   string    `json:"last_name,omitempty" bson:"lastName,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
}

// New returns a fresh record for externalID stamped with now (UTC).
func New(externalID string, now time.Time) *User {
	return &User{ExternalID: externalID, CreatedAt: now.UTC()}
}
