package probe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// scanMP4Duration 从 ISO BMFF（MP4/MOV/M4V）容器的 mvhd 盒子读取时长。
// 文件句柄是一个作用域资源：所有返回路径都保证关闭。
func scanMP4Duration(path string) (seconds float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open container: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	moov, err := findTopLevelBox(f, "moov")
	if err != nil {
		return 0, err
	}

	mvhd, err := findChildBox(f, moov, "mvhd")
	if err != nil {
		return 0, err
	}

	return readMvhdDuration(f, mvhd)
}

// box 描述一个盒子的负载区间（不含 8 字节头）。
type box struct {
	start int64
	size  int64
}

func findTopLevelBox(f *os.File, name string) (box, error) {
	info, err := f.Stat()
	if err != nil {
		return box{}, err
	}
	return scanBoxes(f, 0, info.Size(), name)
}

func findChildBox(f *os.File, parent box, name string) (box, error) {
	return scanBoxes(f, parent.start, parent.start+parent.size, name)
}

func scanBoxes(f *os.File, offset, end int64, name string) (box, error) {
	header := make([]byte, 16)
	for offset+8 <= end {
		if _, err := f.ReadAt(header[:8], offset); err != nil {
			return box{}, fmt.Errorf("read box header: %w", err)
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		boxType := string(header[4:8])
		headerLen := int64(8)

		switch size {
		case 0:
			// size==0 表示盒子延伸到文件末尾。
			size = end - offset
		case 1:
			if _, err := f.ReadAt(header[8:16], offset+8); err != nil {
				return box{}, fmt.Errorf("read extended box size: %w", err)
			}
			size = int64(binary.BigEndian.Uint64(header[8:16]))
			headerLen = 16
		}
		if size < headerLen || offset+size > end {
			return box{}, fmt.Errorf("malformed box %q at offset %d", boxType, offset)
		}

		if boxType == name {
			return box{start: offset + headerLen, size: size - headerLen}, nil
		}
		offset += size
	}
	return box{}, fmt.Errorf("box %q not found", name)
}

func readMvhdDuration(f *os.File, mvhd box) (float64, error) {
	if mvhd.size < 4 {
		return 0, errors.New("mvhd box too short")
	}
	version := make([]byte, 1)
	if _, err := f.ReadAt(version, mvhd.start); err != nil {
		return 0, fmt.Errorf("read mvhd version: %w", err)
	}

	// v0: timescale@12(4B) duration@16(4B)；v1: timescale@20(4B) duration@24(8B)。
	var timescale uint32
	var duration uint64
	switch version[0] {
	case 0:
		buf := make([]byte, 8)
		if _, err := readAtFull(f, buf, mvhd.start+12); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[:4])
		duration = uint64(binary.BigEndian.Uint32(buf[4:8]))
	case 1:
		buf := make([]byte, 12)
		if _, err := readAtFull(f, buf, mvhd.start+20); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[:4])
		duration = binary.BigEndian.Uint64(buf[4:12])
	default:
		return 0, fmt.Errorf("unsupported mvhd version %d", version[0])
	}

	if timescale == 0 {
		return 0, errors.New("mvhd timescale is zero")
	}
	return float64(duration) / float64(timescale), nil
}

func readAtFull(f *os.File, buf []byte, offset int64) (int, error) {
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read mvhd fields: %w", err)
	}
	if n < len(buf) {
		return n, errors.New("mvhd box truncated")
	}
	return n, nil
}
