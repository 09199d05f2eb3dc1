package model

import "strings"

// SessionType 课程环节类型
type SessionType string

const (
	SessionLecture  SessionType = "Lecture"
	SessionTutorial SessionType = "Tutorial"
	SessionLab      SessionType = "Lab"
)

// SessionTypes 排课时依次检查的环节顺序
var SessionTypes = []SessionType{SessionLecture, SessionTutorial, SessionLab}

// Course 课程目录表 — 对应 courses
// 目录加载后只读
type Course struct {
	Code             string `gorm:"type:varchar(15);primaryKey"          json:"code"`
	Name             string `gorm:"type:varchar(200);not null"           json:"name"`
	Credits          int    `gorm:"not null;default:0"                   json:"credits"`
	LectureTime      string `gorm:"type:varchar(100);not null;default:''" json:"lecture_time"`  // 逗号分隔的时段编号，如 T1,T2
	TutorialTime     string `gorm:"type:varchar(100);not null;default:''" json:"tutorial_time"`
	LabTime          string `gorm:"type:varchar(100);not null;default:''" json:"lab_time"`
	LectureLocation  string `gorm:"type:varchar(200);not null;default:''" json:"lecture_location"`
	TutorialLocation string `gorm:"type:varchar(200);not null;default:''" json:"tutorial_location"`
	LabLocation      string `gorm:"type:varchar(200);not null;default:''" json:"lab_location"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// SlotCodes 返回某环节占用的时段编号列表
func (c *Course) SlotCodes(t SessionType) []string {
	var raw string
	switch t {
	case SessionLecture:
		raw = c.LectureTime
	case SessionTutorial:
		raw = c.TutorialTime
	case SessionLab:
		raw = c.LabTime
	}
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// Location 返回某环节的上课地点
func (c *Course) Location(t SessionType) string {
	switch t {
	case SessionLecture:
		return c.LectureLocation
	case SessionTutorial:
		return c.TutorialLocation
	case SessionLab:
		return c.LabLocation
	}
	return ""
}
