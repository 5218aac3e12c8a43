package models

import "gorm.io/gorm"

// Роли пользователей системы.
const (
	RoleAdmin    = "admin"
	RoleSecurity = "security"
	RoleStudent  = "student"
)

// User - учетная запись. UserIDNo - школьный номер, он же логин и ключ
// связи с внешней системой зачисления.
type User struct {
	gorm.Model
	UserIDNo     string `json:"user_id_no" gorm:"unique;not null"`
	Password     string `json:"-" gorm:"not null"`
	UserRole     string `json:"user_role" gorm:"default:'student'"`
	FaceEnrolled bool   `json:"face_enrolled" gorm:"default:false"`
	ProfilePhoto string `json:"profile_photo"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
}

func (u *User) IsAdmin() bool {
	return u.UserRole == RoleAdmin
}

func (u *User) IsStudent() bool {
	return u.UserRole == RoleStudent
}
