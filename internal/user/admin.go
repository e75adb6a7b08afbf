package user

import (
	"errors"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"gorm.io/gorm"
)

// IsAdmin verifica se um usuário é admin a partir do seu ID
func IsAdmin(userID string) (bool, error) {
	var isAdmin bool
	if err := database.DB.Model(&User{}).Select("is_admin OR plan = ?", PlanAdmin).Where("id = ?", userID).Scan(&isAdmin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil // usuário inexistente, logo não é admin
		}
		return false, err
	}
	return isAdmin, nil
}
