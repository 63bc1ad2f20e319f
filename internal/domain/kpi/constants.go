package kpi

const (
	MinWeight = 1
	MaxWeight = 100

	MaxNameLength = 200
)
