package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

type User struct {
	gorm.Model
	Username     string `json:"username" gorm:"column:username;unique;not null"`
	Email        string `json:"email" gorm:"column:email;unique;not null"`
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
	PhoneNumber  string `json:"phoneNumber" gorm:"column:phone_number"`
	Role         string `json:"role" gorm:"column:role;not null;default:'customer'"`
	VehicleType  string `json:"vehicleType,omitempty" gorm:"column:vehicle_type"`
	CarPlate     string `json:"carPlate,omitempty" gorm:"column:car_plate"`
	AvatarURL    string `json:"avatarUrl,omitempty" gorm:"column:avatar_url"`
	DocumentURL  string `json:"-" gorm:"column:document_url"`
	FCMToken     string `json:"-" gorm:"column:fcm_token"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
