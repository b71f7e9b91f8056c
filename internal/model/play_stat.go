package model

// DailyPlayStat 每日游戏计数，仅用于每日限额
type DailyPlayStat struct {
	BaseModel

	UserID            uint   `gorm:"uniqueIndex:idx_play_user_day" json:"userId"`
	Day               string `gorm:"size:10;uniqueIndex:idx_play_user_day" json:"day"` // 2006-01-02
	GamesPlayed       int    `gorm:"default:0" json:"gamesPlayed"`
	TimePlayedSeconds int    `gorm:"default:0" json:"timePlayedSeconds"`
}

func (DailyPlayStat) TableName() string {
	return "daily_play_stats"
}
