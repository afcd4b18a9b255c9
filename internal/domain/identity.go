package domain

// Identity is the request-scoped caller resolved by the identity provider.
type Identity struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	IsAdmin int    `json:"is_admin"`
}

// Admin reports whether the identity carries the admin flag. Only the exact
// value 1 grants access.
func (i *Identity) Admin() bool {
	return i != nil && i.IsAdmin == 1
}
