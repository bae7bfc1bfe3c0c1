package domain

type User struct {
	ID           string `json:"id" db:"id" bson:"_id"`
	FirstName    string `json:"firstName" db:"first_name" bson:"firstName"`
	LastName     string `json:"lastName" db:"last_name" bson:"lastName"`
	Username     string `json:"username" db:"username" bson:"username"`
	Email        string `json:"email" db:"email" bson:"email"`
	PasswordHash string `json:"-" db:"password_hash" bson:"password"`
	// Token is the most recently issued session token.
	Token       *string `json:"token,omitempty" db:"token" bson:"token,omitempty"`
	IsConfirmed bool    `json:"isConfirmed" db:"is_confirmed" bson:"isConfirmed"`
}

// SignupInput is the body of POST /signup.
type SignupInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// LoginInput is the body of POST /login.
type LoginInput struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}
