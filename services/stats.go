package services

import (
	"context"

	"github.com/Kazutech1/cucker-sub000/models"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers       int64            `json:"totalUsers"`
	ActiveUsers      int64            `json:"activeUsers"`
	TasksByStatus    map[string]int64 `json:"tasksByStatus"`
	PendingCombo     int64            `json:"pendingCombo"`
	ProfitCredited   float64          `json:"profitCredited"`
	PenaltiesApplied float64          `json:"penaltiesApplied"`
	TotalBalance     float64          `json:"totalBalance"`
	TotalProfit      float64          `json:"totalProfitBalance"`
}

func (s *TaskService) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{TasksByStatus: map[string]int64{
		string(models.TaskPending):   0,
		string(models.TaskCompleted): 0,
		string(models.TaskRejected):  0,
		string(models.TaskCancelled): 0,
	}}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("status = ?", "Active").Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.UserTask{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.TasksByStatus[row.Status] = row.Count
	}

	if err := db.Model(&models.UserTask{}).
		Where("status = ? AND is_forced = ?", models.TaskPending, true).
		Count(&stats.PendingCombo).Error; err != nil {
		return nil, err
	}

	var ledger []struct {
		Reason string
		Total  float64
	}
	if err := db.Model(&models.LedgerEntry{}).
		Select("reason, COALESCE(SUM(amount), 0) AS total").
		Where("reason IN ?", []string{models.ReasonTaskProfit, models.ReasonTaskPenalty}).
		Group("reason").
		Scan(&ledger).Error; err != nil {
		return nil, err
	}
	for _, row := range ledger {
		switch row.Reason {
		case models.ReasonTaskProfit:
			stats.ProfitCredited = toFloat(money(row.Total))
		case models.ReasonTaskPenalty:
			stats.PenaltiesApplied = toFloat(money(row.Total).Neg())
		}
	}

	var totals struct {
		Balance       float64
		ProfitBalance float64
	}
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(balance), 0) AS balance, COALESCE(SUM(profit_balance), 0) AS profit_balance").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalBalance = toFloat(money(totals.Balance))
	stats.TotalProfit = toFloat(money(totals.ProfitBalance))
	return stats, nil
}
