package handlers

import (
	"log"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateProfileInput struct {
	Username    *string `json:"username"`
	Phone       *string `json:"phone"`
	VehicleType *string `json:"vehicleType"`
	CarPlate    *string `json:"carPlate"`
}

type FCMTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		avatarURL := user.AvatarURL
		if avatarURL != "" && !services.IsUsingS3() {
			avatarURL = services.GetImageURL(avatarURL)
		}

		c.JSON(200, gin.H{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"phoneNumber": user.PhoneNumber,
			"role":        user.Role,
			"vehicleType": user.VehicleType,
			"carPlate":    user.CarPlate,
			"avatarUrl":   avatarURL,
		})
	}
}

// UpdateProfile applies a partial update to the authenticated user
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input UpdateProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.Username != nil {
			user.Username = *input.Username
		}
		if input.Phone != nil {
			user.PhoneNumber = *input.Phone
		}
		if input.VehicleType != nil {
			if user.Role != string(models.RoleDriver) {
				c.JSON(403, gin.H{"error": "Only drivers can set a vehicle type"})
				return
			}
			if !models.IsValidServiceKind(*input.VehicleType) {
				c.JSON(400, gin.H{"error": "Unrecognized vehicle type"})
				return
			}
			user.VehicleType = *input.VehicleType
		}
		if input.CarPlate != nil {
			user.CarPlate = *input.CarPlate
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		// The availability row mirrors the vehicle type so job matching
		// never has to join users.
		if input.VehicleType != nil {
			if err := db.Model(&models.DriverStatus{}).
				Where("driver_id = ?", userID).
				Update("vehicle_type", user.VehicleType).Error; err != nil {
				log.Printf("Failed to sync vehicle type for driver %d: %v", userID, err)
			}
		}

		c.JSON(200, gin.H{"message": "Profile updated successfully"})
	}
}

// UploadAvatar stores a profile picture and saves its URL
func UploadAvatar(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		file, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(400, gin.H{"error": "No file uploaded"})
			return
		}

		// 5MB limit
		if file.Size > 5*1024*1024 {
			c.JSON(400, gin.H{"error": "File too large (max 5MB)"})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		imagePath, err := services.UploadImage(file, "avatars")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload image: " + err.Error()})
			return
		}

		// Best effort cleanup of the previous avatar
		if user.AvatarURL != "" {
			if err := services.DeleteImage(user.AvatarURL); err != nil {
				log.Printf("Failed to delete old avatar for user %d: %v", userID, err)
			}
		}

		user.AvatarURL = imagePath
		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save avatar"})
			return
		}

		c.JSON(200, gin.H{
			"message":   "Avatar uploaded successfully",
			"avatarUrl": services.GetImageURL(imagePath),
		})
	}
}

// UploadVehicleDocument stores a driver's vehicle document (license,
// registration). Drivers only.
func UploadVehicleDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		if role != string(models.RoleDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can upload vehicle documents"})
			return
		}

		file, err := c.FormFile("document")
		if err != nil {
			c.JSON(400, gin.H{"error": "No file uploaded"})
			return
		}

		if file.Size > 10*1024*1024 {
			c.JSON(400, gin.H{"error": "File too large (max 10MB)"})
			return
		}

		docPath, err := services.UploadImage(file, "documents")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload document: " + err.Error()})
			return
		}

		if err := db.Model(&models.User{}).
			Where("id = ?", userID).
			Update("document_url", docPath).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save document"})
			return
		}

		c.JSON(200, gin.H{"message": "Document uploaded successfully"})
	}
}

// RegisterFCMToken saves the device token used for push notifications
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input FCMTokenInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&models.User{}).
			Where("id = ?", userID).
			Update("fcm_token", input.Token).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to register token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token registered"})
	}
}
