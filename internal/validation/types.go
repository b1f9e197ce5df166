package validation

// CreateUserRequest is the payload for POST /users.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Age   *int   `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"` // optional
}

// UpdateUserRequest is the payload for PUT /users/{id}. Every field is
// optional; absent fields leave the record untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Age      *int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	IsActive *bool   `json:"is_active,omitempty"`
}
