package domain

import "time"

type ID string

type User struct {
	ID           ID
	Name         string
	Email        string
	PasswordHash string
	Admin        bool
	LastActive   time.Time
	CreatedAt    time.Time
}
