package entity

// UserLoginData is the identity carried by the access token. The user id is
// also the voice session id.
type UserLoginData struct {
	ID       string
	Username string
	Email    string
}
