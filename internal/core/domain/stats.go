package domain

type WeeklyStats struct {
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	TotalHabits    int         `json:"total_habits"`
	OverallRate    float64     `json:"overall_completion_rate"`
	HabitStats     []HabitStat `json:"habits"`
	TasksCompleted int         `json:"tasks_completed"`
	StarredDays    int         `json:"starred_days"`
	AverageMood    *float64    `json:"average_mood,omitempty"`
}

type HabitStat struct {
	HabitID        int64   `json:"habit_id"`
	HabitName      string  `json:"habit_name"`
	CompletionRate float64 `json:"completion_rate"`
	DaysCompleted  int     `json:"days_completed"`
	DailyProgress  []int   `json:"daily_progress"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}

type StatsInput struct {
	StartDate Date
	EndDate   Date
}
