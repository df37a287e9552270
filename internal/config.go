package internal

import (
	"fmt"
	"time"
	"youcube/infrastructure/ws"
	"youcube/transcode"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=5000"`
	TrustedProxies    *string       `env:"TRUSTED_PROXIES"`
	NoFast            bool          `env:"NO_FAST,default=false"`
	NoColor           bool          `env:"NO_COLOR,default=false"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	DataFolder        string        `env:"DATA_FOLDER,default=data"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,default=data/index"`
	FFmpegPath        string        `env:"FFMPEG_PATH,default=ffmpeg"`
	SanjuuniPath      string        `env:"SANJUUNI_PATH,default=sanjuuni"`
	YtDlpPath         string        `env:"YTDLP_PATH,default=yt-dlp"`
	DownloadWorkers   int           `env:"DOWNLOAD_WORKERS,default=2"`
	DownloadQueueSize int           `env:"DOWNLOAD_QUEUE_SIZE,default=16"`
	DownloadTimeout   time.Duration `env:"DOWNLOAD_TIMEOUT,default=10m"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL,default=1h"`
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	DebugPort         int           `env:"DEBUG_PORT,default=0"`

	SpotifyClientID     string `env:"SPOTIPY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIPY_CLIENT_SECRET"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// Validate rejects values the runtime cannot work with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DownloadWorkers < 1 {
		return fmt.Errorf("DOWNLOAD_WORKERS must be at least 1, got %d", c.DownloadWorkers)
	}
	if c.DownloadQueueSize < 0 {
		return fmt.Errorf("DOWNLOAD_QUEUE_SIZE must not be negative, got %d", c.DownloadQueueSize)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive, got %s", c.DownloadTimeout)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	return nil
}

// StaleAfter is the age past which a work directory cannot belong to a running download.
func (c Config) StaleAfter() time.Duration {
	return 2 * c.DownloadTimeout
}

func (c Config) Server() ws.ServerConfig {
	return ws.ServerConfig{
		TrustedProxies: ws.ParseTrustedProxies(c.TrustedProxies),
		NoColor:        c.NoColor,
		Fast:           !c.NoFast,
		MaxMessageSize: c.MaxMessageSize,
		WriteTimeout:   c.WriteTimeout,
	}
}

func (c Config) Transcode() transcode.Config {
	return transcode.Config{
		DataDir:      c.DataFolder,
		YtDlpPath:    c.YtDlpPath,
		FFmpegPath:   c.FFmpegPath,
		SanjuuniPath: c.SanjuuniPath,
	}
}
