package core

import "time"

// User is an account of the tracking application
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	FirstName    string    `json:"firstName,omitempty" bson:"first_name,omitempty"`
	LastName     string    `json:"lastName,omitempty" bson:"last_name,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// UserInput is the client-supplied part of a user for create and update.
// Password is optional on update; an empty value keeps the current hash.
type UserInput struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"firstName,omitempty" validate:"max=100"`
	LastName  string `json:"lastName,omitempty" validate:"max=100"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}
