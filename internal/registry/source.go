package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"workstation-engine/internal/process"
)

// Source 提供某一工艺类型的模板
type Source interface {
	Templates(processType string) ([]process.Template, error)
}

// SourceFunc 让普通函数实现 Source
type SourceFunc func(processType string) ([]process.Template, error)

func (f SourceFunc) Templates(processType string) ([]process.Template, error) {
	return f(processType)
}

// DirSource 从目录中的 YAML 文件读取模板
type DirSource struct {
	Dirs []string
}

// NewDirSource 创建目录模板源
func NewDirSource(dirs ...string) *DirSource {
	return &DirSource{Dirs: dirs}
}

// Templates 扫描所有目录，返回类型匹配的模板。
// 单个文件读取或解析失败不影响其他文件，错误合并后与已解析的模板一并返回。
func (s *DirSource) Templates(processType string) ([]process.Template, error) {
	all, err := s.All()
	var out []process.Template
	for _, t := range all {
		if t.Type == processType {
			out = append(out, t)
		}
	}
	return out, err
}

// All 返回目录中的全部模板，不按类型过滤。
// 返回的错误是各目录、各文件错误的 errors.Join，模板列表始终包含能解析的部分。
func (s *DirSource) All() ([]process.Template, error) {
	var (
		out  []process.Template
		errs []error
	)
	for _, dir := range s.Dirs {
		files, err := yamlFiles(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("读取模板文件失败 %s: %w", path, err))
				continue
			}
			templates, err := process.ParseTemplates(data)
			if err != nil {
				errs = append(errs, fmt.Errorf("解析模板文件失败 %s: %w", path, err))
				continue
			}
			out = append(out, templates...)
		}
	}
	return out, errors.Join(errs...)
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败 %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// StaticSource 是内存中的模板列表，主要用于测试和嵌入式场景
type StaticSource []process.Template

func (s StaticSource) Templates(processType string) ([]process.Template, error) {
	var out []process.Template
	for _, t := range s {
		if t.Type == processType {
			out = append(out, t)
		}
	}
	return out, nil
}
