package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// ErrCodeInvalid 表示环境变量无法解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultBaseURL 是 VOD 归档的默认扫描入口。
	DefaultBaseURL = "https://archive.wubby.tv/vods/public/"
	// DefaultFolderStructure 是默认的目录组织模板。
	DefaultFolderStructure = "{year}/{month} - {date}"
	// DefaultFileNamePattern 是默认的最终文件名模板（不含扩展名）。
	DefaultFileNamePattern = "{date} - {title}"
)

// EnvConfig 对应环境变量表面（.env 或进程环境）。
// 变量名与原有部署保持一致，便于平滑迁移。
type EnvConfig struct {
	DownloadPath    string `env:"DOWNLOAD_PATH" env-default:"./downloads"`
	MaxFileSizeMB   int    `env:"MAX_FILE_SIZE_MB" env-default:"0"`
	CheckTime       string `env:"CHECK_TIME" env-default:"02:00"`
	BaseURL         string `env:"VOD_BASE_URL" env-default:"https://archive.wubby.tv/vods/public/"`
	FolderStructure string `env:"FOLDER_STRUCTURE" env-default:"{year}/{month} - {date}"`
	FileNamePattern string `env:"FILE_NAME_PATTERN" env-default:"{date} - {title}"`
	DelaySec        int    `env:"DOWNLOAD_DELAY_SEC" env-default:"2"`
	Debug           bool   `env:"DEBUG" env-default:"false"`
}

// EffectiveConfig 是校验并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/合法性判断）。
type EffectiveConfig struct {
	// DownloadPath 是下载根目录（clean + absolute）。
	DownloadPath string

	// MaxFileSizeBytes <=0 表示不限制。
	MaxFileSizeBytes int64

	// CheckTime 是每日检查时刻（"HH:MM"，已通过解析校验）。
	CheckTime string

	// BaseURL 是扫描入口（http/https，保证以 '/' 结尾，相对链接解析依赖它）。
	BaseURL string

	FolderStructure string
	FileNamePattern string

	// DownloadDelay 是相邻两次下载之间的礼貌性停顿（串行限速策略，不是偶然限制）。
	DownloadDelay time.Duration

	Debug bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取环境（含可选 .env）并规范化为最终配置。
//
// 发现规则（固定）：
// 1) <cwd>/.env 存在则先载入（不覆盖已有环境变量；缺失不算错误）
// 2) 其余全部来自进程环境，未设置的变量取内置默认值
func LoadEffective(cwd string) (EffectiveConfig, error) {
	// godotenv.Load 不覆盖既有环境变量：显式 export 的值优先于 .env。
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !os.IsNotExist(err) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf(".env 无法读取：%w", err)}
	}

	var ec EnvConfig
	if err := cleanenv.ReadEnv(&ec); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}

	return normalize(cwd, ec)
}

func normalize(cwd string, ec EnvConfig) (EffectiveConfig, error) {
	downloadPath := absCleanFrom(cwd, ec.DownloadPath)
	if downloadPath == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("DOWNLOAD_PATH 不能为空")}
	}

	if ec.MaxFileSizeMB < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("MAX_FILE_SIZE_MB 不能为负数：%d", ec.MaxFileSizeMB)}
	}
	var maxBytes int64
	if ec.MaxFileSizeMB > 0 {
		maxBytes = int64(ec.MaxFileSizeMB) * 1024 * 1024
	}

	checkTime := strings.TrimSpace(ec.CheckTime)
	if _, err := time.Parse("15:04", checkTime); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("CHECK_TIME 必须是 HH:MM：%q", ec.CheckTime)}
	}

	baseURL := strings.TrimSpace(ec.BaseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("VOD_BASE_URL 无效：%q", ec.BaseURL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("VOD_BASE_URL 必须是 http/https：%q", ec.BaseURL)}
	}
	// 目录入口必须以 '/' 结尾，否则相对链接会解析到父路径。
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	folder := strings.TrimSpace(ec.FolderStructure)
	if folder == "" {
		folder = DefaultFolderStructure
	}
	filePattern := strings.TrimSpace(ec.FileNamePattern)
	if filePattern == "" {
		filePattern = DefaultFileNamePattern
	}

	delaySec := ec.DelaySec
	if delaySec < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("DOWNLOAD_DELAY_SEC 不能为负数：%d", ec.DelaySec)}
	}

	return EffectiveConfig{
		DownloadPath:     downloadPath,
		MaxFileSizeBytes: maxBytes,
		CheckTime:        checkTime,
		BaseURL:          baseURL,
		FolderStructure:  folder,
		FileNamePattern:  filePattern,
		DownloadDelay:    time.Duration(delaySec) * time.Second,
		Debug:            ec.Debug,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
