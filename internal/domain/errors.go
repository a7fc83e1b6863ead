package domain

import "errors"

var (
	ErrEmptyOrder    = errors.New("no order items")
	ErrOrderNotFound = errors.New("order not found")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminImmutable     = errors.New("admin user can not be deleted")

	ErrProductNotFound = errors.New("product not found")
	ErrAlreadyReviewed = errors.New("product already reviewed")

	ErrForbidden = errors.New("not authorized for this resource")
)
