// Package types 定义 devlink 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

var (
	// ErrNameTooLong 流名称超过线上格式允许的长度
	ErrNameTooLong = errors.New("stream name too long")

	// ErrEmptyName 流名称为空
	ErrEmptyName = errors.New("empty stream name")
)
