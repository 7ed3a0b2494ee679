package errors

import (
	"fmt"
	"net/http"
)

// 进程监视相关错误

// WatcherAlreadyStarted 创建重复启动监视器错误
func WatcherAlreadyStarted() *AppError {
	return New(ErrTypeWatcher, "watcher already started", nil, http.StatusConflict).WithStack()
}

// WatcherPanic 将监视线程中的 panic 转换为错误
func WatcherPanic(v any) *AppError {
	if err, ok := v.(error); ok {
		return New(ErrTypeInternal, "watcher panicked", err, http.StatusInternalServerError).WithStack()
	}
	return New(ErrTypeInternal, fmt.Sprintf("watcher panicked: %v", v), nil, http.StatusInternalServerError).WithStack()
}

// ProcessNotFound 创建目标进程未找到错误
func ProcessNotFound(name string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("process not found: %s", name), nil, http.StatusNotFound).WithStack()
}

// 区域表相关错误

// RegionTableFetchFailed 创建区域表获取失败错误
func RegionTableFetchFailed(source string, cause error) *AppError {
	return New(ErrTypeRegion, fmt.Sprintf("failed to fetch region table: %s", source), cause, http.StatusBadGateway).WithStack()
}

// RegionTableDecodeFailed 创建区域表解析失败错误
func RegionTableDecodeFailed(cause error) *AppError {
	return New(ErrTypeRegion, "failed to decode region table", cause, http.StatusInternalServerError).WithStack()
}

// RegionPrefixInvalid 创建区域前缀格式错误
func RegionPrefixInvalid(prefix string, cause error) *AppError {
	return New(ErrTypeRegion, fmt.Sprintf("invalid ip prefix: %s", prefix), cause, http.StatusInternalServerError).WithStack()
}

// 更新相关错误

// UpdateCheckFailed 创建更新检查失败错误
func UpdateCheckFailed(cause error) *AppError {
	return New(ErrTypeUpdater, "update check failed", cause, http.StatusBadGateway).WithStack()
}

// UpdateNotAvailable 创建没有待安装更新错误
func UpdateNotAvailable() *AppError {
	return New(ErrTypeUpdater, "no update available", nil, http.StatusConflict).WithStack()
}

// UpdateAssetMissing 创建当前平台没有更新包错误
func UpdateAssetMissing(target string) *AppError {
	return New(ErrTypeUpdater, fmt.Sprintf("no update asset for target: %s", target), nil, http.StatusNotFound).WithStack()
}

// UpdateDownloadFailed 创建更新包下载失败错误
func UpdateDownloadFailed(url string, cause error) *AppError {
	return New(ErrTypeUpdater, fmt.Sprintf("failed to download update: %s", url), cause, http.StatusBadGateway).WithStack()
}

// 配置相关错误

// ConfigInvalid 创建配置无效错误
func ConfigInvalid(field string, cause error) *AppError {
	return New(ErrTypeConfig, fmt.Sprintf("invalid configuration: %s", field), cause, http.StatusInternalServerError).WithStack()
}

// ConfigMissing 创建配置缺失错误
func ConfigMissing(field string) *AppError {
	return New(ErrTypeConfig, fmt.Sprintf("missing configuration: %s", field), nil, http.StatusBadRequest).WithStack()
}

// 文件系统错误

// FileReadFailed 创建文件读取失败错误
func FileReadFailed(path string, cause error) *AppError {
	return New(ErrTypeInternal, fmt.Sprintf("failed to read file: %s", path), cause, http.StatusInternalServerError).WithStack()
}

// FileWriteFailed 创建文件写入失败错误
func FileWriteFailed(path string, cause error) *AppError {
	return New(ErrTypeInternal, fmt.Sprintf("failed to write file: %s", path), cause, http.StatusInternalServerError).WithStack()
}

// 参数验证错误

// InvalidParam 创建参数无效错误
func InvalidParam(param string, reason string) *AppError {
	message := fmt.Sprintf("invalid parameter: %s", param)
	if reason != "" {
		message = fmt.Sprintf("%s (%s)", message, reason)
	}
	return New(ErrTypeInvalidArg, message, nil, http.StatusBadRequest).WithStack()
}

// ErrCheckRunning 手动检查时已有检查在进行中
var ErrCheckRunning = New(ErrTypeUpdater, "update check already running", nil, http.StatusConflict)

// ErrWatcherStopped 监视器已退出
var ErrWatcherStopped = New(ErrTypeWatcher, "watcher stopped", nil, http.StatusServiceUnavailable)
