package model

import "time"

// CourseProgress LMS 同步过来的课程进度（0-100）
type CourseProgress struct {
	BaseModel

	UserID      uint    `gorm:"uniqueIndex:idx_progress_user_course" json:"userId"`
	CourseID    uint    `gorm:"uniqueIndex:idx_progress_user_course" json:"courseId"`
	ProgressPct float64 `json:"progressPct"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// LessonView 最近一次有效的课时浏览记录
type LessonView struct {
	BaseModel

	UserID   uint      `gorm:"index:idx_lesson_user_course" json:"userId"`
	CourseID uint      `gorm:"index:idx_lesson_user_course" json:"courseId"`
	LessonID uint      `json:"lessonId"`
	ViewedAt time.Time `gorm:"index" json:"viewedAt"`
}

func (LessonView) TableName() string {
	return "lesson_views"
}
