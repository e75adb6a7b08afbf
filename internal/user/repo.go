package user

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textocerto/TextoCerto-Back/internal/database"
)

func GetByID(userID string) (User, error) {
	var u User
	if err := database.DB.First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// EnsureUser cria a linha local no primeiro acesso (plano free)
func EnsureUser(userID, email string) error {
	u := User{
		ID:        userID,
		CreatedAt: time.Now(),
		Email:     email,
		Plan:      PlanFree,
	}
	return database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&u).Error
}

func ExistsByEmail(email string) bool {
	var count int64
	database.DB.Model(&User{}).Where("email = ?", email).Count(&count)
	return count > 0
}

// PlanOf devolve o plano efetivo; usuário desconhecido é tratado como free
func PlanOf(userID string, now time.Time) (Plan, error) {
	if userID == "" {
		return PlanFree, nil
	}
	u, err := GetByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return PlanFree, nil
		}
		return PlanFree, err
	}
	return u.EffectivePlan(now), nil
}

func SetName(userID, name string) error {
	return database.DB.Model(&User{}).Where("id = ?", userID).Update("name", name).Error
}
