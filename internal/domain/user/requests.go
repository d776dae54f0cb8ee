package user

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,bcryptmax"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the privileged creation path, so it may carry a role.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,bcryptmax"`
	Role     string `json:"role" binding:"omitempty,role"`
}

// UpdateSelfRequest is a partial update: absent fields stay as they are.
type UpdateSelfRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	Email    *string `json:"email" binding:"omitempty,email,max=254"`
	Password *string `json:"password" binding:"omitempty,min=6,bcryptmax"`
}
