package uploader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ProbeMP4Duration 从 MP4 容器的 moov/mvhd 盒读取媒体时长，
// 四舍五入为整数秒。无 mvhd 或时间刻度非法时返回错误。
func ProbeMP4Duration(path string) (int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return probeMP4(f)
}

func probeMP4(r io.ReadSeeker) (int32, error) {
	moov, err := seekToBox(r, "moov", math.MaxInt64)
	if err != nil {
		return 0, err
	}
	if _, err := seekToBox(r, "mvhd", moov); err != nil {
		return 0, err
	}
	return readMvhdDuration(r)
}

// seekToBox 在当前位置起 limit 字节内顺序扫描顶层盒，停在目标盒
// 的载荷起始处并返回载荷长度。
func seekToBox(r io.ReadSeeker, boxType string, limit int64) (int64, error) {
	var header [8]byte
	remaining := limit
	for remaining > 8 {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, fmt.Errorf("mp4: box %q not found", boxType)
			}
			return 0, err
		}
		size := int64(binary.BigEndian.Uint32(header[:4]))
		headerLen := int64(8)
		if size == 1 {
			var ext [8]byte
			if _, err := io.ReadFull(r, ext[:]); err != nil {
				return 0, err
			}
			size = int64(binary.BigEndian.Uint64(ext[:]))
			headerLen = 16
		}
		if size < headerLen {
			return 0, fmt.Errorf("mp4: malformed box size %d", size)
		}
		if string(header[4:8]) == boxType {
			return size - headerLen, nil
		}
		if _, err := r.Seek(size-headerLen, io.SeekCurrent); err != nil {
			return 0, err
		}
		remaining -= size
	}
	return 0, fmt.Errorf("mp4: box %q not found", boxType)
}

func readMvhdDuration(r io.Reader) (int32, error) {
	var version [4]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return 0, err
	}
	var timescale uint32
	var duration uint64
	switch version[0] {
	case 0:
		var body [16]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(body[8:12])
		duration = uint64(binary.BigEndian.Uint32(body[12:16]))
	case 1:
		var body [28]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(body[16:20])
		duration = binary.BigEndian.Uint64(body[20:28])
	default:
		return 0, fmt.Errorf("mp4: unsupported mvhd version %d", version[0])
	}
	if timescale == 0 {
		return 0, errors.New("mp4: zero timescale")
	}
	seconds := math.Round(float64(duration) / float64(timescale))
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, nil
	}
	if seconds > math.MaxInt32 {
		return 0, errors.New("mp4: duration overflow")
	}
	return int32(seconds), nil
}
