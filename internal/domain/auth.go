package domain

// AuthService resolves bearer tokens to users.
type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
}
