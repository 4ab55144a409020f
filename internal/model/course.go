package model

// Course 课程表，对应 courses
// current_enrolled <= capacity 只作参考，不做强约束
type Course struct {
	ID              string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name            string `gorm:"type:varchar(200);not null"                     json:"name"`
	Teacher         string `gorm:"type:varchar(100);not null;default:''"          json:"teacher"`
	Schedule        string `gorm:"type:varchar(200);not null;default:''"          json:"schedule"`
	Location        string `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	Cost            int    `gorm:"not null;default:0"                             json:"cost"`
	Capacity        int    `gorm:"not null;default:0"                             json:"capacity"`
	CurrentEnrolled int    `gorm:"not null;default:0"                             json:"current_enrolled"`
	IsFull          bool   `gorm:"not null;default:false"                         json:"is_full"`
	Description     string `gorm:"type:text;not null;default:''"                  json:"description"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// ComputeIsFull 按名额重新计算满额状态
func (c *Course) ComputeIsFull() {
	c.IsFull = c.CurrentEnrolled >= c.Capacity
}
