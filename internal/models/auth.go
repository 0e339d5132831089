package models

// LoginInput is the staff login payload
type LoginInput struct {
	TenantSlug string `json:"tenant_slug" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
}

// SignupInput registers a hotel and its first admin
type SignupInput struct {
	HotelName     string `json:"hotel_name" validate:"required,min=2,max=120"`
	Slug          string `json:"slug" validate:"omitempty,min=3,max=50"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,e164"`
	Timezone      string `json:"timezone" validate:"omitempty,timezone"`
	AdminName     string `json:"admin_name" validate:"required,min=2,max=120"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

type ForgotPasswordInput struct {
	TenantSlug string `json:"tenant_slug" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	TenantSlug  string `json:"tenant_slug" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// AuthToken is returned after login or signup
type AuthToken struct {
	Token     string  `json:"token"`
	ExpiresAt int64   `json:"expires_at"`
	Staff     *Staff  `json:"staff"`
	Tenant    *Tenant `json:"tenant"`
}
