package dto

// Data Transfer Objects for authentication requests and responses

// RegisterRequest: payload for user registration, every field is required
type RegisterRequest struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest: payload for user login
type LoginRequest struct {
	Username string `json:"username" binding:"required,notblank"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse: response payload after successful registration
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// AuthResponse: response payload after successful login
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}
