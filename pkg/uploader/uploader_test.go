package uploader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/stats"
	"github.com/livekit/webcam-recorder/pkg/types"
)

func writeRecording(t *testing.T, dir string) string {
	t.Helper()

	local := filepath.Join(dir, "recording.mkv")
	require.NoError(t, os.WriteFile(local, []byte("matroska"), 0644))
	return local
}

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	local := writeRecording(t, dir)

	u, err := New(&config.StorageConfig{
		Prefix: "sessions",
		Local:  &config.LocalConfig{Directory: filepath.Join(dir, "archive")},
	}, nil, stats.NewMonitor(nil))
	require.NoError(t, err)

	location, size, err := u.Upload(local, "CR_test.mkv", types.OutputTypeMKV)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "archive", "sessions", "CR_test.mkv"), location)
	require.Equal(t, int64(8), size)
	require.False(t, u.BackupUsed())

	b, err := os.ReadFile(location)
	require.NoError(t, err)
	require.Equal(t, "matroska", string(b))

	// kept unless delete_after_upload is set
	_, err = os.Stat(local)
	require.NoError(t, err)
}

func TestUploadDeleteAfterUpload(t *testing.T) {
	dir := t.TempDir()
	local := writeRecording(t, dir)

	u, err := New(&config.StorageConfig{
		DeleteAfterUpload: true,
		Local:             &config.LocalConfig{Directory: filepath.Join(dir, "archive")},
	}, nil, nil)
	require.NoError(t, err)

	_, _, err = u.Upload(local, "out.mkv", types.OutputTypeMKV)
	require.NoError(t, err)

	_, err = os.Stat(local)
	require.True(t, os.IsNotExist(err))
}

func TestUploadInPlaceKeepsFile(t *testing.T) {
	dir := t.TempDir()
	local := writeRecording(t, dir)

	u, err := New(&config.StorageConfig{
		DeleteAfterUpload: true,
		Local:             &config.LocalConfig{Directory: dir},
	}, nil, nil)
	require.NoError(t, err)

	location, _, err := u.Upload(local, "recording.mkv", types.OutputTypeMKV)
	require.NoError(t, err)
	require.Equal(t, local, location)

	_, err = os.Stat(local)
	require.NoError(t, err)
}

func TestUploadBackup(t *testing.T) {
	dir := t.TempDir()
	local := writeRecording(t, dir)

	// a regular file where the primary directory should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	u, err := New(
		&config.StorageConfig{Local: &config.LocalConfig{Directory: filepath.Join(blocker, "primary")}},
		&config.StorageConfig{Local: &config.LocalConfig{Directory: filepath.Join(dir, "backup")}},
		nil,
	)
	require.NoError(t, err)

	location, size, err := u.Upload(local, "out.mkv", types.OutputTypeMKV)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "backup", "out.mkv"), location)
	require.Equal(t, int64(8), size)
	require.True(t, u.BackupUsed())
}

func TestUploadMissingFile(t *testing.T) {
	dir := t.TempDir()

	u, err := New(
		&config.StorageConfig{Local: &config.LocalConfig{Directory: filepath.Join(dir, "primary")}},
		&config.StorageConfig{Local: &config.LocalConfig{Directory: filepath.Join(dir, "backup")}},
		nil,
	)
	require.NoError(t, err)

	_, _, err = u.Upload(filepath.Join(dir, "missing.mkv"), "out.mkv", types.OutputTypeMKV)
	require.Error(t, err)
	require.Contains(t, err.Error(), "primary:")
	require.Contains(t, err.Error(), "backup:")
	require.False(t, u.BackupUsed())
}

func TestS3Location(t *testing.T) {
	conf := &config.S3Config{Bucket: "recordings"}
	require.Equal(t, "https://recordings.s3.amazonaws.com/a/out.mkv", s3Location(conf, "a/out.mkv"))

	conf.Endpoint = "https://minio.local:9000"
	conf.ForcePathStyle = true
	require.Equal(t, "https://minio.local:9000/recordings/a/out.mkv", s3Location(conf, "a/out.mkv"))
}

func TestUploadInPlaceRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir)
	t.Chdir(dir)

	u, err := New(&config.StorageConfig{
		DeleteAfterUpload: true,
		Local:             &config.LocalConfig{Directory: dir},
	}, nil, nil)
	require.NoError(t, err)

	location, _, err := u.Upload("recording.mkv", "recording.mkv", types.OutputTypeMKV)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "recording.mkv"), location)

	b, err := os.ReadFile(location)
	require.NoError(t, err)
	require.Equal(t, "matroska", string(b))
}

func TestGetUploader(t *testing.T) {
	u, err := getUploader(nil)
	require.NoError(t, err)
	require.IsType(t, &localUploader{}, u)

	u, err = getUploader(&config.StorageConfig{Prefix: "p"})
	require.NoError(t, err)
	require.Equal(t, &localUploader{prefix: "p"}, u)

	u, err = getUploader(&config.StorageConfig{
		Prefix: "p",
		Local:  &config.LocalConfig{Directory: "/recordings"},
	})
	require.NoError(t, err)
	require.Equal(t, &localUploader{dir: "/recordings", prefix: "p"}, u)

	u, err = getUploader(&config.StorageConfig{
		Prefix: "p",
		Azure:  &config.AzureConfig{AccountName: "acct", ContainerName: "videos"},
	})
	require.NoError(t, err)
	az, ok := u.(*AzureUploader)
	require.True(t, ok)
	require.Equal(t, "https://acct.blob.core.windows.net/videos", az.container)
	require.Equal(t, "p", az.prefix)

	u, err = getUploader(&config.StorageConfig{
		S3: &config.S3Config{
			AccessKey: "key",
			Secret:    "secret",
			Region:    "eu-west-1",
			Bucket:    "recordings",
			Endpoint:  "https://minio.local:9000",
		},
	})
	require.NoError(t, err)
	s3u, ok := u.(*S3Uploader)
	require.True(t, ok)
	require.Equal(t, "eu-west-1", s3u.awsConf.Region)
	require.Equal(t, "https://minio.local:9000", *s3u.awsConf.BaseEndpoint)
}

func TestProxyTransport(t *testing.T) {
	transport, err := proxyTransport(&config.ProxyConfig{
		Url:      "http://proxy.local:3128",
		Username: "user",
		Password: "pass",
	})
	require.NoError(t, err)
	require.Equal(t, "Basic dXNlcjpwYXNz", transport.ProxyConnectHeader.Get("Proxy-Authorization"))

	_, err = proxyTransport(&config.ProxyConfig{Url: "://bad"})
	require.Error(t, err)
}
