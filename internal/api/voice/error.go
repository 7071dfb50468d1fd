package voice

import "VoiceIntent/pkg/response"

var (
	ErrRunNotFound        = response.NewErrorWithKey(404, "RUN_NOT_FOUND", "voice run not found")
	ErrRunNotOwned        = response.NewErrorWithKey(403, "RUN_NOT_OWNED", "voice run belongs to another user")
	ErrInvalidAudioFile   = response.NewErrorWithKey(400, "INVALID_AUDIO", "invalid audio file")
	ErrAudioFileTooLarge  = response.NewErrorWithKey(400, "AUDIO_TOO_LARGE", "audio file too large")
	ErrVoiceRunFailed     = response.NewErrorWithKey(500, "VOICE_RUN_FAILED", "failed to process voice run")
	ErrNavigationFailed   = response.NewErrorWithKey(502, "NAVIGATION_FAILED", "navigation could not be delivered")
	ErrNoActiveConnection = response.NewErrorWithKey(404, "NO_ACTIVE_CONNECTION", "no navigation channel is connected for this session")
)
