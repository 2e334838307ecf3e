package model

type Document struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement:true"`
	Kind      string `gorm:"index;type:varchar(255)"`
	ChannelID string `gorm:"column:channel_id;index;type:varchar(255)"`
	Token     string `gorm:"index;type:varchar(255)"`
	Body      string `gorm:"type:longtext"`
}

func (Document) TableName() string {
	return "documents"
}
