package info

import (
	"net/http"
	"time"

	"github.com/livekit/psrpc"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/types"
)

const (
	MsgStoppedBeforeStarted = "Stop called before pipeline could start"
	MsgEOSTimeout           = "End of stream did not arrive in time, recording may be unplayable"
	MsgUploadFailed         = "Recording kept locally, upload failed"
)

// SessionInfo is the observable record of one capture session.
// Times are unix nanoseconds.
type SessionInfo struct {
	SessionID   string
	Destination string
	Params      config.CaptureParams
	Status      types.SessionStatus
	Details     string
	Error       string
	ErrorCode   int32

	StartedAt int64
	EndedAt   int64
	UpdatedAt int64

	// set when the recording was uploaded
	Location          string
	Size              int64
	BackupStorageUsed bool
}

func New(p *config.PipelineConfig) *SessionInfo {
	return &SessionInfo{
		SessionID:   p.SessionID,
		Destination: p.Destination,
		Params:      *p.Params.Clone(),
		Status:      types.SessionStatusStarting,
		UpdatedAt:   time.Now().UnixNano(),
	}
}

func (s *SessionInfo) UpdateStatus(status types.SessionStatus) {
	s.Status = status
	s.UpdatedAt = time.Now().UnixNano()
}

func (s *SessionInfo) SetActive(startedAt int64) {
	s.Status = types.SessionStatusActive
	s.StartedAt = startedAt
	s.UpdatedAt = startedAt
}

func (s *SessionInfo) SetAborted(msg string) {
	now := time.Now().UnixNano()
	s.Status = types.SessionStatusAborted
	s.appendDetails(msg)
	s.UpdatedAt = now
	s.EndedAt = now
}

func (s *SessionInfo) SetFailed(err error) {
	now := time.Now().UnixNano()
	s.Status = types.SessionStatusFailed
	s.UpdatedAt = now
	s.EndedAt = now
	s.Error = err.Error()
	s.ErrorCode = errorCode(err)
	if errors.Is(err, errors.ErrEOSTimeout) {
		s.appendDetails(MsgEOSTimeout)
	}
}

func (s *SessionInfo) SetComplete() {
	now := time.Now().UnixNano()
	s.Status = types.SessionStatusComplete
	s.UpdatedAt = now
	s.EndedAt = now
}

// SetUploadFailed keeps the final status; the local recording is still valid.
func (s *SessionInfo) SetUploadFailed(err error) {
	s.Error = err.Error()
	s.ErrorCode = errorCode(err)
	s.appendDetails(MsgUploadFailed)
	s.UpdatedAt = time.Now().UnixNano()
}

func (s *SessionInfo) Duration() time.Duration {
	if s.StartedAt == 0 || s.EndedAt < s.StartedAt {
		return 0
	}
	return time.Duration(s.EndedAt - s.StartedAt)
}

func (s *SessionInfo) appendDetails(msg string) {
	if s.Details == "" {
		s.Details = msg
	} else {
		s.Details = s.Details + "; " + msg
	}
}

func errorCode(err error) int32 {
	var perr psrpc.Error
	if errors.As(err, &perr) {
		return int32(perr.ToHttp())
	}
	var serr *errors.StartupError
	if errors.As(err, &serr) {
		return int32(psrpc.NewError(serr.Code(), serr).ToHttp())
	}
	return int32(http.StatusInternalServerError)
}
