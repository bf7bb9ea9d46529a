package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_tasks_assigned_total",
			Help: "User tasks created, by kind",
		},
		[]string{"kind"},
	)

	taskSettlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_task_settlements_total",
			Help: "User task status settlements, by resulting status and source",
		},
		[]string{"status", "source"},
	)
)
