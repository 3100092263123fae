package types

// UpdateProfileParams defines the fields allowed for profile updates.
// Nil pointers leave the column untouched.
type UpdateProfileParams struct {
	Name     *string `json:"name,omitempty"`
	ShopName *string `json:"shopName,omitempty"`
}

// Avatar is a stored profile image.
type Avatar struct {
	ObjectID string `json:"imageId"`
	URL      string `json:"image"`
}
