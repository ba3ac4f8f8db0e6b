package model

// User is the account the opaque credential belongs to
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// IsLoggedIn returns true if the user holds a credential
func (u User) IsLoggedIn() bool {
	return u.Token != ""
}
