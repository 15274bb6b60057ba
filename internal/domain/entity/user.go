package entity

// User is the note owner account. Identity is local (email + password
// hash); external identity providers are out of this service's scope.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"not null"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    int64  `gorm:"not null"`
	UpdatedAt    int64  `gorm:"not null;autoUpdateTime:false"`
}
