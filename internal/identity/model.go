package identity

// Identity is a provisioned login principal. Rows are created and removed
// by an external provisioning process, never by this service.
type Identity struct {
	Email        string
	Name         string
	PasswordHash string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}
