package uploader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
)

// FileInfo 描述一个待上传的本地文件。
type FileInfo struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// Preview 是可撤销的预览资源，撤销后不得再被引用。
type Preview interface {
	URL() string
	Release()
}

// PreviewFactory 为文件创建预览资源。
type PreviewFactory func(file *FileInfo) (Preview, error)

// Notifier 接收面向用户的提示，例如超出体积上限的警告。
type Notifier interface {
	Warn(message string)
}

// DurationProber 返回媒体时长的整数秒数。
type DurationProber func(path string) (int32, error)

// SelectionOptions 配置一个选择槽。
type SelectionOptions struct {
	MaxSizeBytes int64
	Preview      PreviewFactory
	Probe        DurationProber
	Notifier     Notifier
	Logger       log.Logger
}

// Selection 管理单个文件槽：校验体积、维护唯一预览、异步探测时长。
type Selection struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	file     *FileInfo
	preview  Preview
	duration int32

	maxSize  int64
	previews PreviewFactory
	probe    DurationProber
	notifier Notifier
	log      *log.Helper
}

// NewSelection 构造选择槽。
func NewSelection(opts SelectionOptions) *Selection {
	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Selection{
		maxSize:  opts.MaxSizeBytes,
		previews: opts.Preview,
		probe:    opts.Probe,
		notifier: opts.Notifier,
		log:      log.NewHelper(logger),
	}
}

// Set 接受一个新文件。超出体积上限时仅发出警告并保留此前的选择。
// 旧预览先撤销，再为新文件创建预览，任意时刻至多存在一个预览。
func (s *Selection) Set(file *FileInfo) error {
	if file == nil {
		return fmt.Errorf("selection: nil file")
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		if s.notifier != nil {
			s.notifier.Warn(fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxSize/(1<<20)))
		}
		return nil
	}

	s.mu.Lock()
	if s.preview != nil {
		s.preview.Release()
		s.preview = nil
	}
	s.file = file
	s.duration = 0
	if s.previews != nil {
		preview, err := s.previews(file)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("selection: create preview: %w", err)
		}
		s.preview = preview
	}
	s.mu.Unlock()

	if s.probe != nil {
		s.wg.Add(1)
		go s.probeDuration(file)
	}
	return nil
}

// 时长探测在独立 goroutine 中执行，异常值一律归零。
func (s *Selection) probeDuration(file *FileInfo) {
	defer s.wg.Done()
	seconds, err := s.probe(file.Path)
	if err != nil {
		s.log.Warnw("msg", "duration probe failed", "file", file.Name, "error", err)
		seconds = 0
	}
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	if s.file == file {
		s.duration = seconds
	}
	s.mu.Unlock()
}

// File 返回当前选择，未选择时为 nil。
func (s *Selection) File() *FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// PreviewURL 返回当前预览地址，无预览时为空串。
func (s *Selection) PreviewURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return ""
	}
	return s.preview.URL()
}

// DurationSeconds 返回探测到的时长秒数，探测未完成或失败时为 0。
func (s *Selection) DurationSeconds() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Wait 阻塞直到进行中的时长探测全部结束，仅测试与命令行场景使用。
func (s *Selection) Wait() {
	s.wg.Wait()
}

// Reset 清空选择：撤销预览、清除文件与时长。
func (s *Selection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview != nil {
		s.preview.Release()
		s.preview = nil
	}
	s.file = nil
	s.duration = 0
}

// handoffDescriptor 是录制流程写入交接槽的 JSON 描述。
type handoffDescriptor struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	ContentType string `json:"mimeType"`
}

// ConsumeHandoff 读取录制交接槽并将其中的视频装入选择槽。
// 描述文件只消费一次：无论成功与否都会清除槽位，失败仅记录日志。
func (s *Selection) ConsumeHandoff(slotPath string) {
	raw, err := os.ReadFile(slotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("msg", "read recording handoff failed", "error", err)
		}
		return
	}
	if err := os.Remove(slotPath); err != nil {
		s.log.Warnw("msg", "clear recording handoff failed", "error", err)
	}

	var desc handoffDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		s.log.Warnw("msg", "decode recording handoff failed", "error", err)
		return
	}
	stat, err := os.Stat(desc.Path)
	if err != nil {
		s.log.Warnw("msg", "stat recorded video failed", "error", err)
		return
	}
	name := desc.Name
	if name == "" {
		name = filepath.Base(desc.Path)
	}
	contentType := desc.ContentType
	if contentType == "" {
		contentType = "video/webm"
	}
	if err := s.Set(&FileInfo{Path: desc.Path, Name: name, Size: stat.Size(), ContentType: contentType}); err != nil {
		s.log.Warnw("msg", "adopt recorded video failed", "error", err)
	}
}
