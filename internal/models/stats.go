package models

import "time"

// ItemTimeStat is the running preparation-time statistic for one menu
// item on one day. It is folded incrementally on each completion and
// never recomputed from full history.
type ItemTimeStat struct {
	MenuItemID        int64     `json:"menu_item_id"`
	StatDate          time.Time `json:"stat_date"`
	TotalPreparations int       `json:"total_preparations"`
	AvgTimeMinutes    float64   `json:"avg_time_minutes"`
	MinTimeMinutes    float64   `json:"min_time_minutes"`
	MaxTimeMinutes    float64   `json:"max_time_minutes"`
}

// Fold adds one preparation sample (elapsed minutes) to the running
// statistic: newAvg = (oldAvg*oldCount + elapsed) / (oldCount+1).
func (s ItemTimeStat) Fold(elapsedMinutes float64) ItemTimeStat {
	if s.TotalPreparations == 0 {
		s.AvgTimeMinutes = elapsedMinutes
		s.MinTimeMinutes = elapsedMinutes
		s.MaxTimeMinutes = elapsedMinutes
		s.TotalPreparations = 1
		return s
	}
	oldCount := float64(s.TotalPreparations)
	s.AvgTimeMinutes = (s.AvgTimeMinutes*oldCount + elapsedMinutes) / (oldCount + 1)
	if elapsedMinutes < s.MinTimeMinutes {
		s.MinTimeMinutes = elapsedMinutes
	}
	if elapsedMinutes > s.MaxTimeMinutes {
		s.MaxTimeMinutes = elapsedMinutes
	}
	s.TotalPreparations++
	return s
}
