//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"latepost/internal/post"
	logx "latepost/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (post.Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
