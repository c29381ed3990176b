package models

// User is the signed-in identity as the storefront sees it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Prefill builds a ShippingInfo seeded from the user's profile.
func (u User) Prefill() ShippingInfo {
	return ShippingInfo{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
