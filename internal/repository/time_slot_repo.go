package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

// TimeSlotRepository 时段布局数据访问接口
type TimeSlotRepository interface {
	// ListOrdered 按 position、day 升序返回全部单元格
	ListOrdered(ctx context.Context) ([]model.TimeSlotCell, error)
	// ReplaceAll 在事务中全量替换布局
	ReplaceAll(ctx context.Context, cells []model.TimeSlotCell) error
}

type timeSlotRepo struct {
	db *gorm.DB
}

// NewTimeSlotRepo 创建 TimeSlotRepository 实例
func NewTimeSlotRepo(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepo{db: db}
}

func (r *timeSlotRepo) ListOrdered(ctx context.Context) ([]model.TimeSlotCell, error) {
	var cells []model.TimeSlotCell
	err := r.db.WithContext(ctx).
		Order("position ASC, day ASC").
		Find(&cells).Error
	return cells, err
}

func (r *timeSlotRepo) ReplaceAll(ctx context.Context, cells []model.TimeSlotCell) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.TimeSlotCell{}).Error; err != nil {
			return err
		}
		if len(cells) > 0 {
			if err := tx.CreateInBatches(&cells, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
