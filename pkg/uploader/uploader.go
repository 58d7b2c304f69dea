// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uploader

import (
	"os"
	"time"

	"go.uber.org/atomic"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/psrpc"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/stats"
	"github.com/livekit/webcam-recorder/pkg/types"
)

const (
	maxRetries = 5
	minDelay   = time.Millisecond * 100
	maxDelay   = time.Second * 5
)

type uploader interface {
	upload(string, string, types.OutputType) (string, int64, error)
}

// Uploader copies a finished recording to its primary storage, falling back to backup.
type Uploader struct {
	primary           uploader
	backup            uploader
	deleteAfterUpload bool
	monitor           *stats.Monitor

	backupUsed atomic.Bool
}

func New(conf, backup *config.StorageConfig, monitor *stats.Monitor) (*Uploader, error) {
	p, err := getUploader(conf)
	if err != nil {
		return nil, err
	}

	u := &Uploader{
		primary: p,
		monitor: monitor,
	}
	if conf != nil {
		u.deleteAfterUpload = conf.DeleteAfterUpload
	}

	if backup != nil {
		b, err := getUploader(backup)
		if err != nil {
			logger.Errorw("failed to create backup uploader", err)
		} else {
			u.backup = b
		}
	}

	return u, nil
}

func getUploader(conf *config.StorageConfig) (uploader, error) {
	switch {
	case conf == nil:
		return newLocalUploader("", "")
	case conf.S3 != nil:
		return newS3Uploader(conf.S3, conf.Prefix)
	case conf.GCP != nil:
		return newGCPUploader(conf.GCP, conf.Prefix)
	case conf.Azure != nil:
		return newAzureUploader(conf.Azure, conf.Prefix)
	case conf.Local != nil:
		return newLocalUploader(conf.Local.Directory, conf.Prefix)
	default:
		return newLocalUploader("", conf.Prefix)
	}
}

// Upload returns the storage location and size of the uploaded file.
func (u *Uploader) Upload(localFilepath, storageFilepath string, outputType types.OutputType) (string, int64, error) {
	start := time.Now()
	location, size, primaryErr := u.primary.upload(localFilepath, storageFilepath, outputType)
	elapsed := time.Since(start)

	if primaryErr == nil {
		u.monitor.IncUploadCountSuccess(string(outputType), float64(elapsed.Milliseconds()))
		u.cleanup(localFilepath, location)
		return location, size, nil
	}

	u.monitor.IncUploadCountFailure(string(outputType), float64(elapsed.Milliseconds()))
	if u.backup != nil {
		logger.Warnw("primary upload failed, trying backup", primaryErr, "localFilepath", localFilepath)
		location, size, backupErr := u.backup.upload(localFilepath, storageFilepath, outputType)
		if backupErr == nil {
			u.backupUsed.Store(true)
			u.monitor.IncBackupStorageWrites(string(outputType))
			u.cleanup(localFilepath, location)
			return location, size, nil
		}

		return "", 0, psrpc.NewErrorf(psrpc.InvalidArgument,
			"primary: %s\nbackup: %s", primaryErr.Error(), backupErr.Error())
	}

	return "", 0, primaryErr
}

func (u *Uploader) BackupUsed() bool {
	return u.backupUsed.Load()
}

func (u *Uploader) cleanup(localFilepath, location string) {
	if !u.deleteAfterUpload {
		return
	}
	// uploaded in place
	if same, _ := sameFile(localFilepath, location); same {
		return
	}
	if err := os.Remove(localFilepath); err != nil {
		logger.Warnw("failed to delete local recording", err, "localFilepath", localFilepath)
	}
}
