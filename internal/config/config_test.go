package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNormalize_Defaults(t *testing.T) {
	cwd := t.TempDir()
	eff, err := normalize(cwd, EnvConfig{
		DownloadPath:    "./downloads",
		MaxFileSizeMB:   0,
		CheckTime:       "02:00",
		BaseURL:         DefaultBaseURL,
		FolderStructure: DefaultFolderStructure,
		FileNamePattern: DefaultFileNamePattern,
		DelaySec:        2,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if eff.DownloadPath != filepath.Join(cwd, "downloads") {
		t.Fatalf("DownloadPath 未转为绝对路径：%q", eff.DownloadPath)
	}
	if eff.MaxFileSizeBytes != 0 {
		t.Fatalf("未设置上限时 MaxFileSizeBytes 应为 0，实际 %d", eff.MaxFileSizeBytes)
	}
	if eff.DownloadDelay != 2*time.Second {
		t.Fatalf("期望延迟 2s，实际 %v", eff.DownloadDelay)
	}
}

func TestNormalize_MaxSizeToBytes(t *testing.T) {
	eff, err := normalize(t.TempDir(), EnvConfig{
		DownloadPath: "d",
		MaxFileSizeMB: 500,
		CheckTime:    "02:00",
		BaseURL:      DefaultBaseURL,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.MaxFileSizeBytes != 500*1024*1024 {
		t.Fatalf("MB 换算不正确：%d", eff.MaxFileSizeBytes)
	}
}

func TestNormalize_BaseURLTrailingSlash(t *testing.T) {
	eff, err := normalize(t.TempDir(), EnvConfig{
		DownloadPath: "d",
		CheckTime:    "02:00",
		BaseURL:      "https://archive.test/vods",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 目录入口必须以 '/' 结尾，相对链接解析依赖它。
	if eff.BaseURL != "https://archive.test/vods/" {
		t.Fatalf("BaseURL 未补尾部斜杠：%q", eff.BaseURL)
	}
}

func TestNormalize_InvalidInputs(t *testing.T) {
	cases := []struct {
		name string
		ec   EnvConfig
	}{
		{"坏 CHECK_TIME", EnvConfig{DownloadPath: "d", CheckTime: "25:99", BaseURL: DefaultBaseURL}},
		{"坏 VOD_BASE_URL", EnvConfig{DownloadPath: "d", CheckTime: "02:00", BaseURL: "ftp://x/"}},
		{"负的 MAX_FILE_SIZE_MB", EnvConfig{DownloadPath: "d", CheckTime: "02:00", BaseURL: DefaultBaseURL, MaxFileSizeMB: -1}},
		{"负的 DOWNLOAD_DELAY_SEC", EnvConfig{DownloadPath: "d", CheckTime: "02:00", BaseURL: DefaultBaseURL, DelaySec: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalize(t.TempDir(), tc.ec)
			if err == nil {
				t.Fatalf("期望错误，但得到 nil")
			}
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 error_code=%s，实际 %q（%v）", ErrCodeInvalid, Code(err), err)
			}
		})
	}
}

func TestLoadEffective_EnvOverrides(t *testing.T) {
	cwd := t.TempDir()
	t.Setenv("DOWNLOAD_PATH", filepath.Join(cwd, "vods"))
	t.Setenv("MAX_FILE_SIZE_MB", "100")
	t.Setenv("CHECK_TIME", "03:30")
	t.Setenv("VOD_BASE_URL", "https://archive.test/vods/public/")
	t.Setenv("FOLDER_STRUCTURE", "{year}")
	t.Setenv("FILE_NAME_PATTERN", "{title}")
	t.Setenv("DOWNLOAD_DELAY_SEC", "0")
	t.Setenv("DEBUG", "true")

	eff, err := LoadEffective(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.CheckTime != "03:30" || !eff.Debug || eff.DownloadDelay != 0 {
		t.Fatalf("环境变量未生效：%+v", eff)
	}
	if eff.FolderStructure != "{year}" || eff.FileNamePattern != "{title}" {
		t.Fatalf("模板未生效：%+v", eff)
	}
}
