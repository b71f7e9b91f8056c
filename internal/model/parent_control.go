package model

// swagger:model ParentControl
type ParentControl struct {
	BaseModel

	UserID         uint   `gorm:"uniqueIndex" json:"userId"`
	GamesBlocked   bool   `gorm:"default:false" json:"gamesBlocked"`
	AllowedStart   string `gorm:"size:5" json:"allowedStart"` // HH:MM，为空表示不限时段
	AllowedEnd     string `gorm:"size:5" json:"allowedEnd"`
	RequireTickets bool   `gorm:"default:false" json:"requireTickets"`
}

func (ParentControl) TableName() string {
	return "parent_controls"
}

// Controls 转换为评估上下文使用的结构
func (p *ParentControl) Controls() ParentControls {
	out := ParentControls{
		GamesBlocked:   p.GamesBlocked,
		RequireTickets: p.RequireTickets,
	}
	if p.AllowedStart != "" && p.AllowedEnd != "" {
		out.TimeRestrictions = &TimeWindow{Start: p.AllowedStart, End: p.AllowedEnd}
	}
	return out
}
