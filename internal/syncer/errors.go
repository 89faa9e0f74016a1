package syncer

import (
	"errors"
	"fmt"

	"customer-profile-sync/internal/identity"
)

// ErrIdentityAnomaly 订单无法分配客户身份，记录并计数，不中断同步
var ErrIdentityAnomaly = identity.ErrAnomaly

// ErrPartialFailure 部分画像写入失败
var ErrPartialFailure = errors.New("partial failure")

// SourceQueryError 读取源订单失败，属于致命错误，此时不会写入任何画像
type SourceQueryError struct {
	Err error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("source query failed: %v", e.Err)
}

func (e *SourceQueryError) Unwrap() error {
	return e.Err
}

// UpsertError 单个画像写入失败
type UpsertError struct {
	CustomerID string
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert %s: %v", e.CustomerID, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
