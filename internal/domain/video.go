package domain

import "github.com/google/uuid"

// VideoTask is the shop video a script is generated for.
type VideoTask struct {
	ID          uuid.UUID `json:"id"`
	ShopName    string    `json:"shop_name"`
	ShopType    string    `json:"shop_type"`
	Language    string    `json:"language"`
	Description string    `json:"description"`
}
