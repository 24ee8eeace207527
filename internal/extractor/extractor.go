// Package extractor decodes video frames by piping raw RGB output from
// ffmpeg, after probing stream geometry with ffprobe.
package extractor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bdougie/videorag/internal/slicer"
)

// VideoInfo holds the probed properties of the first video stream.
type VideoInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Duration  float64
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe inspects the video with ffprobe.
func Probe(videoPath string) (*VideoInfo, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}

	cmd := exec.Command(
		"ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,duration",
		"-of", "json",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %v", err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %v", err)
	}
	if len(probed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in '%s'", videoPath)
	}

	s := probed.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("invalid stream geometry %dx%d in '%s'", s.Width, s.Height, videoPath)
	}

	info := &VideoInfo{Width: s.Width, Height: s.Height}
	info.FrameRate, err = parseFrameRate(s.RFrameRate)
	if err != nil {
		return nil, err
	}
	if s.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
	}
	return info, nil
}

// parseFrameRate parses ffprobe's rational rate, e.g. "30000/1001".
func parseFrameRate(rate string) (float64, error) {
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate '%s'", rate)
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("invalid frame rate '%s'", rate)
	}
	return num / den, nil
}

// FrameStream yields decoded frames from a running ffmpeg process. It
// implements slicer.FrameSource.
type FrameStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	info   *VideoInfo
	index  int
}

// Open probes the video and starts ffmpeg decoding raw RGB24 frames to a pipe.
func Open(videoPath string) (*FrameStream, error) {
	info, err := Probe(videoPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(
		"ffmpeg",
		"-i", videoPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-v", "error",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %v", err)
	}

	return &FrameStream{cmd: cmd, stdout: stdout, info: info}, nil
}

// Info returns the probed video properties.
func (s *FrameStream) Info() *VideoInfo {
	return s.info
}

// Next reads the next frame. Returns io.EOF once the stream ends.
func (s *FrameStream) Next() (*slicer.Frame, error) {
	pixels := make([]byte, s.info.Width*s.info.Height*3)
	if _, err := io.ReadFull(s.stdout, pixels); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame %d: %v", s.index, err)
	}

	frame := &slicer.Frame{
		Index:     s.index,
		Timestamp: float64(s.index) / s.info.FrameRate,
		Width:     s.info.Width,
		Height:    s.info.Height,
		Channels:  3,
		Pixels:    pixels,
	}
	s.index++
	return frame, nil
}

// Close terminates the ffmpeg process and releases the pipe.
func (s *FrameStream) Close() error {
	s.stdout.Close()
	return s.cmd.Wait()
}
