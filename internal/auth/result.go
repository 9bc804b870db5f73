package auth

// Result is the externally visible outcome of an authentication attempt.
type Result struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
	RoleName     string `json:"role_name,omitempty"`
	IsActive     bool   `json:"is_active"`
	Username     string `json:"username,omitempty"`
	FullName     string `json:"full_name,omitempty"`
}

// NewResult builds a Result from the return values of Authenticate.
func NewResult(identity *Identity, err error) Result {
	if err != nil || identity == nil {
		return Result{ErrorMessage: PublicMessage(err)}
	}
	return Result{
		Success:  true,
		UserID:   identity.UserID,
		RoleName: identity.Role.String(),
		IsActive: identity.Active,
		Username: identity.Username,
		FullName: identity.FullName,
	}
}
