package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys double as flag names; the matching environment variable is the
// upper-cased key with a SNAPSYNC_ prefix (listen-addr -> SNAPSYNC_LISTEN_ADDR).
const (
	KeyListenAddr           = "listen-addr"
	KeyDBPath               = "db-path"
	KeyStoreBackend         = "store-backend"
	KeyStorePath            = "store-path"
	KeyS3Endpoint           = "s3-endpoint"
	KeyS3Region             = "s3-region"
	KeyS3Bucket             = "s3-bucket"
	KeyS3Prefix             = "s3-prefix"
	KeyS3AccessKey          = "s3-access-key"
	KeyS3SecretKey          = "s3-secret-key"
	KeyS3Insecure           = "s3-insecure"
	KeyLogLevel             = "log-level"
	KeyLogFile              = "log-file"
	KeyServerURL            = "server-url"
	KeySession              = "session"
	KeyCameraPollInterval   = "camera-poll-interval"
	KeyExplorerPollInterval = "explorer-poll-interval"
	KeyExportDir            = "export-dir"
	KeyCaptureDevice        = "capture-device"
)

const envPrefix = "SNAPSYNC"

type Config struct {
	ListenAddr           string
	DBPath               string
	StoreBackend         string
	StorePath            string
	S3Endpoint           string
	S3Region             string
	S3Bucket             string
	S3Prefix             string
	S3AccessKey          string
	S3SecretKey          string
	S3Insecure           bool
	LogLevel             string
	LogFile              string
	ServerURL            string
	Session              string
	CameraPollInterval   time.Duration
	ExplorerPollInterval time.Duration
	ExportDir            string
	CaptureDevice        string
}

// LoadFromFlags layers explicitly set flags over SNAPSYNC_* environment
// variables and defaults. A nil FlagSet reads the environment only.
func LoadFromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := newViper()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return &Config{
		ListenAddr:           v.GetString(KeyListenAddr),
		DBPath:               v.GetString(KeyDBPath),
		StoreBackend:         strings.ToLower(v.GetString(KeyStoreBackend)),
		StorePath:            v.GetString(KeyStorePath),
		S3Endpoint:           v.GetString(KeyS3Endpoint),
		S3Region:             v.GetString(KeyS3Region),
		S3Bucket:             v.GetString(KeyS3Bucket),
		S3Prefix:             v.GetString(KeyS3Prefix),
		S3AccessKey:          v.GetString(KeyS3AccessKey),
		S3SecretKey:          v.GetString(KeyS3SecretKey),
		S3Insecure:           v.GetBool(KeyS3Insecure),
		LogLevel:             v.GetString(KeyLogLevel),
		LogFile:              v.GetString(KeyLogFile),
		ServerURL:            v.GetString(KeyServerURL),
		Session:              v.GetString(KeySession),
		CameraPollInterval:   v.GetDuration(KeyCameraPollInterval),
		ExplorerPollInterval: v.GetDuration(KeyExplorerPollInterval),
		ExportDir:            v.GetString(KeyExportDir),
		CaptureDevice:        v.GetString(KeyCaptureDevice),
	}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeyDBPath, "/data/snapsync.db")
	v.SetDefault(KeyStoreBackend, "local")
	v.SetDefault(KeyStorePath, "/data/uploads")
	v.SetDefault(KeyS3Endpoint, "")
	v.SetDefault(KeyS3Region, "us-east-1")
	v.SetDefault(KeyS3Bucket, "")
	v.SetDefault(KeyS3Prefix, "sessions")
	v.SetDefault(KeyS3AccessKey, "")
	v.SetDefault(KeyS3SecretKey, "")
	v.SetDefault(KeyS3Insecure, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyServerURL, "http://localhost:8080")
	v.SetDefault(KeySession, "")
	v.SetDefault(KeyCameraPollInterval, 4*time.Second)
	v.SetDefault(KeyExplorerPollInterval, 3*time.Second)
	v.SetDefault(KeyExportDir, ".")
	v.SetDefault(KeyCaptureDevice, "testpattern")
	return v
}
