package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrNotWaiting 条件更新未命中：请求已不处于等待状态（已被叫号、完成或跳过）
var ErrNotWaiting = errors.New("请求已不处于等待状态")
