package domain

// User is the evaluation context for targeting and percentage rules.
type User struct {
	// Identifier is required and seeds the percentage hash.
	Identifier string
	Email      string
	Country    string
	Custom     map[string]string
}

// NewUser creates a user with the given identifier.
func NewUser(identifier string) *User {
	return &User{Identifier: identifier}
}

// Attribute returns the named attribute. Identifier, Email and Country map to
// the dedicated fields; every other name is looked up in Custom.
func (u *User) Attribute(name string) (string, bool) {
	if u == nil {
		return "", false
	}

	var v string
	switch name {
	case "Identifier":
		v = u.Identifier
	case "Email":
		v = u.Email
	case "Country":
		v = u.Country
	default:
		v = u.Custom[name]
	}

	return v, v != ""
}
