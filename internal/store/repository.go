package store

import "context"

// Repository is the CRUD surface shared by the local SQLite store and the
// remote log store client.
type Repository interface {
	ListLogs(ctx context.Context) ([]Log, error)
	CreateLog(ctx context.Context, l Log) (*Log, error)
	UpdateLog(ctx context.Context, id string, p LogPatch) (*Log, error)
	DeleteLog(ctx context.Context, id string) error
}

var _ Repository = (*Store)(nil)
