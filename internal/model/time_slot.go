package model

// TimeSlotCell 时段布局表 — 对应 time_slot_cells
// 每行表示第 Position 个时间标签在某个工作日对应的时段编号
type TimeSlotCell struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"          json:"id"`
	Position int     `gorm:"not null;uniqueIndex:idx_pos_day"  json:"position"`
	Label    string  `gorm:"type:varchar(50);not null"         json:"label"`
	Day      Weekday `gorm:"type:smallint;not null;uniqueIndex:idx_pos_day" json:"day"` // 1-5
	SlotCode string  `gorm:"type:varchar(20);not null;default:''" json:"slot_code"`
	BaseModel
}

// TableName 指定表名
func (TimeSlotCell) TableName() string { return "time_slot_cells" }
