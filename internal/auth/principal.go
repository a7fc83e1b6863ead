package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID      primitive.ObjectID
	Name    string
	Email   string
	IsAdmin bool
}
