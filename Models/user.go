package Models

import (
	"gorm.io/gorm"

	"golang.org/x/crypto/bcrypt"
)

// User roles, from least to most privileged.
const (
	RoleInspector = "inspector"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// User is an application account used for authentication and role checks.
type User struct {
	gorm.Model
	FullName    string `json:"fullName"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    []byte `json:"-"`
	Role        string `json:"role" gorm:"default:inspector"`
	PhoneNumber string `json:"phoneNumber"`
	IsActive    bool   `json:"isActive" gorm:"default:true"`
	IsApproved  bool   `json:"isApproved" gorm:"default:false"`
}

// SetPassword hashes and stores the plain text password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// MatchPassword compares a login attempt with the stored hash.
func (u *User) MatchPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword(u.Password, []byte(plain)) == nil
}
