package core

// MaxErrorMessageLength caps error text returned to API clients
const MaxErrorMessageLength = 500

// ApplicationStatus represents where a job application stands
type ApplicationStatus string

const (
	// ApplicationStatusWishlist marks a posting the user has not applied to yet
	ApplicationStatusWishlist ApplicationStatus = "Wishlist"
	// ApplicationStatusApplied marks a submitted application
	ApplicationStatusApplied ApplicationStatus = "Applied"
	// ApplicationStatusInterviewing marks an application in the interview process
	ApplicationStatusInterviewing ApplicationStatus = "Interviewing"
	// ApplicationStatusOffer marks an application that produced an offer
	ApplicationStatusOffer ApplicationStatus = "Offer"
	// ApplicationStatusRejected marks an application the employer turned down
	ApplicationStatusRejected ApplicationStatus = "Rejected"
	// ApplicationStatusWithdrawn marks an application the user pulled
	ApplicationStatusWithdrawn ApplicationStatus = "Withdrawn"
)

// String returns the string representation
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusWishlist, ApplicationStatusApplied, ApplicationStatusInterviewing,
		ApplicationStatusOffer, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	default:
		return false
	}
}
