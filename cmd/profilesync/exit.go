package main

import (
	"errors"
)

// 进程退出码
const (
	exitOK      = 0
	exitFatal   = 1 // 配置、连接或读取失败
	exitPartial = 2 // 部分画像写入失败
)

// exitError 携带退出码的错误
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode 错误对应的退出码
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFatal
}
