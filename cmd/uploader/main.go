// Package main 是上传命令行工具：选择本地文件并按序发布到门户服务。
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bionicotaku/cast-services-portal/internal/uploader"

	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/go-kratos/kratos/v2/log"
)

const maxVideoSizeBytes = 500 << 20

type stderrNotifier struct{}

func (stderrNotifier) Warn(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var (
		serverURL   = fs.String("server", "http://localhost:8000", "portal base URL")
		session     = fs.String("session", os.Getenv("PORTAL_SESSION_TOKEN"), "session token cookie value")
		videoPath   = fs.String("video", "", "path to the video file")
		thumbPath   = fs.String("thumbnail", "", "path to the thumbnail image")
		title       = fs.String("title", "", "video title")
		description = fs.String("description", "", "video description")
		visibility  = fs.String("visibility", "public", "public or private")
		handoff     = fs.String("handoff", "", "optional recording handoff descriptor path")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger, err := gclog.NewLogger(gclog.WithService("cast-uploader"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	helper := log.NewHelper(logger)

	videoSel := uploader.NewSelection(uploader.SelectionOptions{
		MaxSizeBytes: maxVideoSizeBytes,
		Probe:        uploader.ProbeMP4Duration,
		Notifier:     stderrNotifier{},
		Logger:       logger,
	})
	thumbSel := uploader.NewSelection(uploader.SelectionOptions{
		Notifier: stderrNotifier{},
		Logger:   logger,
	})

	if *handoff != "" {
		videoSel.ConsumeHandoff(*handoff)
	}
	if *videoPath != "" {
		if err := selectFile(videoSel, *videoPath); err != nil {
			helper.Errorf("select video: %v", err)
			os.Exit(1)
		}
	}
	if *thumbPath != "" {
		if err := selectFile(thumbSel, *thumbPath); err != nil {
			helper.Errorf("select thumbnail: %v", err)
			os.Exit(1)
		}
	}
	videoSel.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := uploader.NewOrchestrator(
		uploader.NewPortalClient(*serverURL, *session),
		uploader.NewHTTPPutter(nil),
	)
	result := orch.Run(ctx, uploader.Input{
		Video:       videoSel,
		Thumbnail:   thumbSel,
		Title:       *title,
		Description: *description,
		Visibility:  *visibility,
	})
	if !result.OK {
		helper.Errorf("publish failed at %s: %s", result.Step, result.Message)
		os.Exit(1)
	}
	fmt.Printf("published video %s\n", result.VideoID)
}

func selectFile(sel *uploader.Selection, path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return sel.Set(&uploader.FileInfo{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        stat.Size(),
		ContentType: contentType,
	})
}
