package model

import "time"

type Review struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ContractorName string    `json:"contractor_name"`
	Rating         int       `json:"rating"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
