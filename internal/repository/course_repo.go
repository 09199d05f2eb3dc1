package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

// CourseRepository 课程目录数据访问接口
type CourseRepository interface {
	List(ctx context.Context) ([]model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	// ListByCodes 按给定顺序返回存在的课程，不存在的编码被忽略
	ListByCodes(ctx context.Context, codes []string) ([]model.Course, error)
	Count(ctx context.Context) (int64, error)
	// ReplaceAll 在事务中全量替换目录
	ReplaceAll(ctx context.Context, courses []model.Course) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).Order("code ASC").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	var c model.Course
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ListByCodes(ctx context.Context, codes []string) ([]model.Course, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var found []model.Course
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&found).Error; err != nil {
		return nil, err
	}

	byCode := make(map[string]model.Course, len(found))
	for _, c := range found {
		byCode[c.Code] = c
	}
	ordered := make([]model.Course, 0, len(found))
	for _, code := range codes {
		if c, ok := byCode[code]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (r *courseRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Course{}).Count(&n).Error
	return n, err
}

func (r *courseRepo) ReplaceAll(ctx context.Context, courses []model.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Course{}).Error; err != nil {
			return err
		}
		if len(courses) > 0 {
			if err := tx.CreateInBatches(&courses, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
