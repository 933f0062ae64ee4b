package types

import "errors"

// 引擎错误类别，调用方通过 errors.Is 判断
var (
	ErrInvalidInput     = errors.New("无效输入")
	ErrValidationFailed = errors.New("质量验证未通过")
	ErrProcessingFailed = errors.New("音频处理失败")
	ErrExportFailed     = errors.New("导出失败")
)
