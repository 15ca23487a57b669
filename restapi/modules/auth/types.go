package auth

// TokenLoginRequest is posted by the Yandex login widget
type TokenLoginRequest struct {
	AccessToken string `json:"access_token" form:"access_token" validate:"required"`
}

// UserResponse defines the session info returned to the frontend
type UserResponse struct {
	Login   string `json:"login"`
	IsAdmin bool   `json:"is_admin"`
}
