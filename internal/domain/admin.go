package domain

// Admin is a dashboard account. PasswordHash is a bcrypt hash and is never
// serialized.
type Admin struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Phone        string `json:"phone,omitempty"`
}
