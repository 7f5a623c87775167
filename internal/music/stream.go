package music

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/jung-m/dca"
	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/internal/voice"
)

// KKDAIStreamer pulls the audio stream with kkdai/youtube and encodes it to
// Opus with dca.
type KKDAIStreamer struct {
	client *youtube.Client
	logger *zap.Logger
}

func NewKKDAIStreamer(logger *zap.Logger) *KKDAIStreamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KKDAIStreamer{client: &youtube.Client{}, logger: logger}
}

func (s *KKDAIStreamer) Open(ctx context.Context, track Track) (voice.Resource, error) {
	id := track.ID
	if vid, ok := youTubeVideoID(track.URL); ok {
		id = vid
	}
	if id == "" {
		return nil, fmt.Errorf("kkdai: no video id for %q", track.URL)
	}

	video, err := s.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("kkdai: get video: %w", err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return nil, errors.New("kkdai: no audio formats found for video")
	}

	// The body is read for the whole track, after ctx is gone.
	stream, _, err := s.client.GetStreamContext(context.WithoutCancel(ctx), video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("kkdai: get stream: %w", err)
	}

	opts := *dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Bitrate = 96
	opts.Application = dca.AudioApplicationAudio

	session, err := dca.EncodeMem(stream, &opts)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("kkdai: encode: %w", err)
	}

	s.logger.Debug("streaming via kkdai",
		zap.String("title", video.Title),
		zap.String("mimeType", formats[0].MimeType))
	return &dcaResource{session: session, source: stream}, nil
}

type dcaResource struct {
	session *dca.EncodeSession
	source  io.Closer
}

func (r *dcaResource) ReadFrame() ([]byte, error) {
	return r.session.OpusFrame()
}

func (r *dcaResource) Close() error {
	r.session.Cleanup()
	return r.source.Close()
}

// FFmpegStreamer resolves a direct media URL with yt-dlp and transcodes it to
// Ogg/Opus with ffmpeg.
type FFmpegStreamer struct {
	Binary   string
	resolver *YTDLPResolver
	logger   *zap.Logger
}

func NewFFmpegStreamer(binary string, resolver *YTDLPResolver, logger *zap.Logger) *FFmpegStreamer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegStreamer{Binary: binary, resolver: resolver, logger: logger}
}

func (s *FFmpegStreamer) Open(ctx context.Context, track Track) (voice.Resource, error) {
	streamURL, err := s.resolver.StreamURL(ctx, track.URL)
	if err != nil {
		return nil, err
	}

	// The process outlives the request context; Close kills it.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, s.Binary, ffmpegArgs(streamURL)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				s.logger.Debug("ffmpeg", zap.String("line", line))
			}
		}
	}()

	return &ffmpegResource{
		OggOpusReader: voice.NewOggOpusReader(stdout),
		cmd:           cmd,
		cancel:        cancel,
	}, nil
}

func ffmpegArgs(input string) []string {
	return []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", input,
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	}
}

type ffmpegResource struct {
	*voice.OggOpusReader
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (r *ffmpegResource) Close() error {
	r.cancel()
	_ = r.cmd.Wait()
	return nil
}

// FallbackStreamer tries each streamer in order until one opens.
type FallbackStreamer struct {
	streamers []Streamer
	logger    *zap.Logger
}

func NewFallbackStreamer(logger *zap.Logger, streamers ...Streamer) *FallbackStreamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackStreamer{streamers: streamers, logger: logger}
}

func (f *FallbackStreamer) Open(ctx context.Context, track Track) (voice.Resource, error) {
	var errs []error
	for _, s := range f.streamers {
		res, err := s.Open(ctx, track)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("streamer failed, trying next", zap.String("url", track.URL), zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no streamers configured")
	}
	return nil, fmt.Errorf("all streamers failed for %s: %w", track.URL, errors.Join(errs...))
}
