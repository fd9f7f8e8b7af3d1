package model

import "time"

// User is the local platform account. The donation core only ever resolves
// users by e-mail to associate event-log entries and authorize subscription
// management; account lifecycle is owned elsewhere.
type User struct {
	ID           string
	Email        string
	FullName     string
	RegisteredAt time.Time
}
