package kpi

import "context"

type StoreAPI interface {
	ListKPIs(ctx context.Context, includeRemoved bool) ([]KPI, error)
	GetKPI(ctx context.Context, id string) (KPI, error)
	CreateKPI(ctx context.Context, input Input) (KPI, error)
	UpdateKPI(ctx context.Context, id string, input Input) (KPI, error)
	RemoveKPI(ctx context.Context, id string) (KPI, error)
	RestoreKPI(ctx context.Context, id string) (KPI, error)
}
