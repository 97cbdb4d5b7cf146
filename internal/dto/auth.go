package dto

import (
	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResponseDTO is returned by register and login
type AuthResponseDTO struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

// ToAuthResponseDTO flattens an auth result
func ToAuthResponseDTO(result services.AuthResult) AuthResponseDTO {
	resp := AuthResponseDTO{Token: result.Token}
	if result.User != nil {
		resp.UserID = result.User.ID
		resp.Username = result.User.Username
	}
	return resp
}
