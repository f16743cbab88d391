package core

import "time"

// JobApplication is one job a user is tracking
type JobApplication struct {
	ID        string            `json:"id" bson:"_id"`
	UserID    string            `json:"userId" bson:"user_id"`
	Company   string            `json:"company" bson:"company"`
	Position  string            `json:"position" bson:"position"`
	Status    ApplicationStatus `json:"status" bson:"status"`
	Location  string            `json:"location,omitempty" bson:"location,omitempty"`
	URL       string            `json:"url,omitempty" bson:"url,omitempty"`
	Salary    string            `json:"salary,omitempty" bson:"salary,omitempty"`
	Notes     string            `json:"notes,omitempty" bson:"notes,omitempty"`
	AppliedOn *time.Time        `json:"appliedOn,omitempty" bson:"applied_on,omitempty"`
	CreatedAt time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time         `json:"updatedAt" bson:"updated_at"`
}

// JobApplicationInput is the client-supplied part of a job application
type JobApplicationInput struct {
	UserID    string            `json:"userId" validate:"required,uuid"`
	Company   string            `json:"company" validate:"required,max=200"`
	Position  string            `json:"position" validate:"required,max=200"`
	Status    ApplicationStatus `json:"status,omitempty"`
	Location  string            `json:"location,omitempty" validate:"max=200"`
	URL       string            `json:"url,omitempty" validate:"omitempty,url,max=2048"`
	Salary    string            `json:"salary,omitempty" validate:"max=100"`
	Notes     string            `json:"notes,omitempty" validate:"max=5000"`
	AppliedOn *time.Time        `json:"appliedOn,omitempty"`
}
