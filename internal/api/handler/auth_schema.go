package handler

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	Email        string `json:"email"         validate:"required,email"`
	Role         string `json:"role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

type changePasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
	ResetCode   string `json:"reset_code"   validate:"required"`
	Role        string `json:"role"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type acceptedResponse struct {
	Message string `json:"message"`
}

type identityResponse struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

type clientEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// errorResponse documents the error envelope rendered by the central error handler.
type errorResponse struct {
	Error string `json:"error"`
}
