package model

// QuestionType 题目类型
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	FreeText       QuestionType = "free_text"
	FillBlank      QuestionType = "fill_blank"
	Sort           QuestionType = "sort"
	Matrix         QuestionType = "matrix"
	Assessment     QuestionType = "assessment"
	Essay          QuestionType = "essay"
)

// IsTextType 文本类题目的答案列表即可接受答案，不能下发给客户端
func (t QuestionType) IsTextType() bool {
	return t == FreeText || t == FillBlank
}

// swagger:model Quiz
type Quiz struct {
	BaseModel

	Title            string `gorm:"size:191" json:"title"`
	RandomizeAnswers bool   `gorm:"default:false" json:"randomizeAnswers"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel

	QuizID       uint         `gorm:"index" json:"quizId"`
	Title        string       `gorm:"size:191" json:"title"`
	Text         string       `gorm:"type:text" json:"text"`
	QuestionType QuestionType `gorm:"size:50" json:"questionType"`
	Points       int          `gorm:"default:0" json:"points"`
	Difficulty   string       `gorm:"size:50;index" json:"difficulty"`
	Order        int          `gorm:"default:0" json:"order"`
	Answers      []QuizAnswer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizAnswer 选项；对文本题而言即可接受的答案文本
type QuizAnswer struct {
	BaseModel

	QuestionID uint   `gorm:"index" json:"questionId"`
	Text       string `gorm:"type:text" json:"text"`
	Correct    bool   `gorm:"default:false" json:"correct"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}

// AnswerOption 下发给客户端的选项
type AnswerOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// Question 下发给客户端的题目，不含任何正确答案信息
type Question struct {
	ID      uint           `json:"id"`
	QuizID  uint           `json:"quizId"`
	Title   string         `json:"title"`
	Text    string         `json:"text"`
	Type    QuestionType   `json:"type"`
	Points  int            `json:"points"`
	Answers []AnswerOption `json:"answers"`
}

// CorrectAnswer 选择题为选项 ID 集合，文本题为可接受文本集合
type CorrectAnswer struct {
	IDs   []uint   `json:"ids,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// CachedQuestion 服务端缓存的完整题目记录
type CachedQuestion struct {
	Question      Question      `json:"question"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer"`
	UserID        uint          `json:"userId"`
}
