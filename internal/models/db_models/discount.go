package db_models

// Discount is only touched here to bump its usage counter after checkout.
type Discount struct {
	BaseModel
	Code       string `gorm:"size:50;uniqueIndex;not null"`
	UsedCount  int    `gorm:"not null;default:0"`
	UsageLimit *int
	IsActive   bool `gorm:"not null"`
}
