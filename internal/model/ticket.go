package model

type UserTicket struct {
	BaseModel

	UserID  uint `gorm:"uniqueIndex" json:"userId"`
	Balance int  `gorm:"default:0" json:"balance"`
}

func (UserTicket) TableName() string {
	return "user_tickets"
}
