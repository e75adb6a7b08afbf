package correction

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textocerto/TextoCerto-Back/internal/database"
)

// Brasil não tem horário de verão desde 2019: UTC-3 fixo
var brasilia = time.FixedZone("BRT", -3*60*60)

type QuotaError struct {
	Limit int
	Used  int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("limite diário atingido (%d/%d)", e.Used, e.Limit)
}

// DayStart devolve a meia-noite (Brasília) do dia de t, como data
func DayStart(t time.Time) time.Time {
	local := t.In(brasilia)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ConsumeDaily registra uma correção no dia corrente.
// limit == 0 significa ilimitado; o uso é contado mesmo assim.
func ConsumeDaily(userID string, limit int, now time.Time) (int, error) {
	day := DayStart(now)
	used := 0

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		counter, err := lockCounter(tx, userID, day)
		if err != nil {
			return err
		}

		if limit > 0 && counter.Count >= limit {
			used = counter.Count
			return QuotaError{Limit: limit, Used: counter.Count}
		}

		used = counter.Count + 1
		return tx.Model(&UsageCounter{}).
			Where("user_id = ? AND day = ?", userID, day).
			Update("count", used).Error
	})
	return used, err
}

// ReleaseDaily devolve uma unidade quando a correção falhou depois do débito
func ReleaseDaily(userID string, now time.Time) error {
	return database.DB.Model(&UsageCounter{}).
		Where("user_id = ? AND day = ? AND count > 0", userID, DayStart(now)).
		Update("count", gorm.Expr("count - 1")).Error
}

// UsedToday lê o contador sem travar
func UsedToday(userID string, now time.Time) (int, error) {
	var counter UsageCounter
	err := database.DB.Where("user_id = ? AND day = ?", userID, DayStart(now)).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return counter.Count, err
}

func lockCounter(tx *gorm.DB, userID string, day time.Time) (UsageCounter, error) {
	var counter UsageCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND day = ?", userID, day).
		First(&counter).Error
	if err == nil {
		return counter, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UsageCounter{}, err
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UsageCounter{UserID: userID, Day: day, Count: 0}).Error; err != nil {
		return UsageCounter{}, err
	}

	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND day = ?", userID, day).
		First(&counter).Error
	return counter, err
}
