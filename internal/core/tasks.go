package core

import "strconv"

const DaysPerWeek = 7

// TaskStats summarises the task list widget.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Incomplete int `json:"incomplete"`
}

// ComputeTaskStats counts tasks whose status is "completed".
func ComputeTaskStats(tasks []map[string]any) TaskStats {
	out := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		if asString(t["status"]) == "completed" {
			out.Completed++
		}
	}
	out.Incomplete = out.Total - out.Completed
	return out
}

// WeeklyStats summarises one weekly planner document.
type WeeklyStats struct {
	DailyTotal     [DaysPerWeek]int `json:"dailyTotal"`
	DailyCompleted [DaysPerWeek]int `json:"dailyCompleted"`
	Total          int              `json:"total"`
	Completed      int              `json:"completed"`
	Remaining      int              `json:"remaining"`
}

// ComputeWeeklyStats reads the "days" field, stored either as a list of seven
// task lists or as a map keyed "0" to "6".
func ComputeWeeklyStats(fields map[string]any) WeeklyStats {
	var out WeeklyStats
	for day := 0; day < DaysPerWeek; day++ {
		for _, item := range weekDay(fields["days"], day) {
			task := asMap(item)
			if task == nil {
				continue
			}
			out.DailyTotal[day]++
			if asBool(task["completed"]) {
				out.DailyCompleted[day]++
			}
		}
		out.Total += out.DailyTotal[day]
		out.Completed += out.DailyCompleted[day]
	}
	out.Remaining = out.Total - out.Completed
	return out
}

func weekDay(days any, day int) []any {
	if m := asMap(days); m != nil {
		return asList(m[strconv.Itoa(day)])
	}
	list := asList(days)
	if day < len(list) {
		return asList(list[day])
	}
	return nil
}
