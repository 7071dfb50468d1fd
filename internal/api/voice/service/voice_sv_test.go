package voiceService

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VoiceIntent/internal/api/voice"
	voiceRepository "VoiceIntent/internal/api/voice/repository"
	"VoiceIntent/internal/entity"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/audio"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/navigation"
	"VoiceIntent/pkg/speech"
	"VoiceIntent/pkg/utils"
)

type fakePipeline struct {
	report      *pipeline.RunReport
	err         error
	requests    []pipeline.RunRequest
	navigateErr error
	prediction  *intent.Prediction
	classifyErr error
	recording   bool
}

func (f *fakePipeline) Run(_ context.Context, req pipeline.RunRequest) (*pipeline.RunReport, error) {
	f.requests = append(f.requests, req)
	if f.report != nil {
		f.report.RunID = req.RunID
		f.report.SessionID = req.SessionID
	}
	return f.report, f.err
}

func (f *fakePipeline) Classify(_ context.Context, _ string) (*intent.Prediction, pipeline.Destination, error) {
	if f.classifyErr != nil {
		return nil, pipeline.HomePage, f.classifyErr
	}
	return f.prediction, pipeline.Route(f.prediction.TopIntent), nil
}

func (f *fakePipeline) NavigateHome(_ context.Context, _ string) error {
	return f.navigateErr
}

func (f *fakePipeline) IsRecording(_ context.Context, _ string) (bool, error) {
	return f.recording, nil
}

func (f *fakePipeline) Settings() pipeline.Settings {
	return pipeline.Settings{SourceLanguage: "zh-CN", PivotLanguage: "en-US"}
}

type fakeRuns struct {
	created   []entity.PipelineRun
	stored    map[string]entity.PipelineRun
	cutoff    time.Time
	deleted   int64
	createErr error
}

func (f *fakeRuns) CreateRun(_ context.Context, run entity.PipelineRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRuns) GetRunByID(_ context.Context, id string) (entity.PipelineRun, error) {
	run, ok := f.stored[id]
	if !ok {
		return entity.PipelineRun{}, voice.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeRuns) GetRunsByUserID(_ context.Context, userID string, limit, offset int) ([]entity.PipelineRun, int, error) {
	var runs []entity.PipelineRun
	for _, r := range f.stored {
		if r.UserID == userID {
			runs = append(runs, r)
		}
	}
	total := len(runs)
	if offset >= total {
		return []entity.PipelineRun{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return runs[offset:end], total, nil
}

func (f *fakeRuns) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

type fakeRepo struct {
	runs      *fakeRuns
	committed bool
}

func (f *fakeRepo) NewClient(_ bool) (voiceRepository.Client, error) {
	return voiceRepository.Client{
		Runs:     f.runs,
		Commit:   func() error { f.committed = true; return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeS3 struct {
	keys [][]string
	err  error
}

func (f *fakeS3) UploadBytes(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, []string{key, contentType})
	return "https://bucket.example/" + key, nil
}

func (f *fakeS3) PresignUrl(_ context.Context, fileUrl string) (string, error) {
	return fileUrl, nil
}

func (f *fakeS3) DeleteFile(_ context.Context, _ string) error {
	return nil
}

type fixture struct {
	svc      IVoiceService
	pipeline *fakePipeline
	repo     *fakeRepo
	s3       *fakeS3
}

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func newFixture(archive bool) *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		pipeline: &fakePipeline{},
		repo:     &fakeRepo{runs: &fakeRuns{stored: map[string]entity.PipelineRun{}}},
		s3:       &fakeS3{},
	}

	svc := NewVoiceService(logger, f.repo, f.pipeline, f.s3, utils.New(), &VoiceConfig{
		ArchiveFailedClips:  archive,
		RunHistoryRetention: 7 * 24 * time.Hour,
	}).(*voiceService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc

	return f
}

func wavBytes() []byte {
	return audio.EncodeWAV(make([]float32, 160), audio.SampleRate)
}

func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["audio"][0]
}

func routedReport() *pipeline.RunReport {
	return &pipeline.RunReport{
		SourceLanguage: "zh-CN",
		PivotLanguage:  "en-US",
		Mode:           pipeline.ModeTranslate,
		Outcome:        pipeline.Recognized("我想预约", "I want to book an appointment"),
		Prediction: &intent.Prediction{
			TopIntent: intent.AppointmentBooking,
			Intents: []intent.Intent{
				{Category: intent.AppointmentBooking, ConfidenceScore: 0.91},
				{Category: intent.None, ConfidenceScore: 0.2},
			},
			Entities: []intent.Entity{{Category: "DateTime", Text: "tomorrow"}},
		},
		Routed:      true,
		Destination: pipeline.BookingPage,
		Navigated:   true,
		StartedAt:   fixedNow,
		FinishedAt:  fixedNow.Add(1500 * time.Millisecond),
	}
}

func TestProcessVoiceRunRoutesAndAudits(t *testing.T) {
	f := newFixture(true)
	f.pipeline.report = routedReport()

	res, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{SourceLanguage: "zh-CN"})
	require.NoError(t, err)

	require.Len(t, f.pipeline.requests, 1)
	req := f.pipeline.requests[0]
	assert.Equal(t, "user-1", req.SessionID)
	assert.Equal(t, "zh-CN", req.SourceLanguage)
	assert.NotEmpty(t, req.RunID)

	assert.Equal(t, req.RunID, res.RunID)
	assert.Equal(t, "Recognized", res.Recognition.Status)
	assert.Equal(t, "I want to book an appointment", res.Recognition.Translated)
	require.NotNil(t, res.Destination)
	assert.Equal(t, "/booking", res.Destination.Path)
	assert.True(t, res.Navigated)
	assert.Equal(t, int64(1500), res.DurationMs)

	require.Len(t, f.repo.runs.created, 1)
	run := f.repo.runs.created[0]
	assert.Equal(t, req.RunID, run.ID)
	assert.Equal(t, "translate", run.Mode)
	assert.Equal(t, intent.AppointmentBooking, run.TopIntent)
	assert.InDelta(t, 0.91, run.Confidence, 1e-9)
	assert.Equal(t, 1, run.EntityCount)
	assert.Equal(t, "BookingPage", run.Destination)
	assert.Empty(t, run.ArchiveURL)
	assert.Empty(t, f.s3.keys)
}

func TestProcessVoiceRunArchivesFailedRecognition(t *testing.T) {
	f := newFixture(true)
	f.pipeline.report = &pipeline.RunReport{
		SourceLanguage: "en-US",
		PivotLanguage:  "en-US",
		Mode:           pipeline.ModeDirect,
		Outcome: pipeline.CanceledOutcome(speech.CancellationDetails{
			Reason:       speech.CancellationError,
			ErrorCode:    speech.ErrorCodeAuthenticationFailure,
			ErrorDetails: "invalid subscription key",
		}),
		Prediction: &intent.Prediction{Intents: []intent.Intent{{Category: intent.None, ConfidenceScore: 1}}},
	}

	res, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Canceled", res.Recognition.Status)
	assert.Equal(t, speech.ErrorCodeAuthenticationFailure, res.Recognition.ErrorCode)
	assert.Nil(t, res.Destination)

	runID := f.pipeline.requests[0].RunID
	require.Len(t, f.s3.keys, 1)
	assert.Equal(t, []string{"voice-failures/" + runID + ".wav", "audio/wav"}, f.s3.keys[0])

	run := f.repo.runs.created[0]
	assert.Equal(t, "Canceled", run.RecognitionStatus)
	assert.Equal(t, "Error", run.CancellationReason)
	assert.Equal(t, "https://bucket.example/voice-failures/"+runID+".wav", run.ArchiveURL)
	assert.Empty(t, run.TopIntent)
	assert.Empty(t, run.Destination)
}

func TestProcessVoiceRunSkipsArchiveWhenDisabled(t *testing.T) {
	f := newFixture(false)
	f.pipeline.report = &pipeline.RunReport{
		Outcome:    pipeline.NoMatchOutcome(),
		Prediction: &intent.Prediction{},
	}

	_, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{})
	require.NoError(t, err)

	assert.Empty(t, f.s3.keys)
	assert.Equal(t, "NoMatch", f.repo.runs.created[0].RecognitionStatus)
}

func TestProcessVoiceRunRejectedRunIsNotAudited(t *testing.T) {
	f := newFixture(true)
	f.pipeline.err = pipeline.ErrRunInProgress

	_, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{})
	assert.ErrorIs(t, err, pipeline.ErrRunInProgress)
	assert.Empty(t, f.repo.runs.created)
}

func TestProcessVoiceRunClassificationFailureIsAudited(t *testing.T) {
	f := newFixture(false)
	classErr := &pipeline.ClassificationError{Err: errors.New("service unavailable")}
	f.pipeline.report = &pipeline.RunReport{
		Mode:    pipeline.ModeDirect,
		Outcome: pipeline.Recognized("book me in", "book me in"),
	}
	f.pipeline.err = classErr

	_, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{})

	var target *pipeline.ClassificationError
	require.ErrorAs(t, err, &target)
	require.Len(t, f.repo.runs.created, 1)
	assert.Contains(t, f.repo.runs.created[0].FatalError, "service unavailable")
}

func TestProcessVoiceRunAuditFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(false)
	f.pipeline.report = routedReport()
	f.repo.runs.createErr = errors.New("connection refused")

	res, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "utterance.wav", wavBytes()), voice.ProcessRunRequest{})
	require.NoError(t, err)
	assert.True(t, res.Navigated)
}

func TestProcessVoiceRunValidatesUpload(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "note.mp3", []byte("ID3")), voice.ProcessRunRequest{})
	assert.ErrorIs(t, err, utils.ErrNotWAV)

	_, err = f.svc.ProcessVoiceRun(context.Background(), "user-1",
		fileHeader(t, "fake.wav", []byte("not a riff file")), voice.ProcessRunRequest{})
	assert.ErrorIs(t, err, audio.ErrInvalidWAV)

	assert.Empty(t, f.pipeline.requests)
}

func TestGetRunChecksOwnership(t *testing.T) {
	f := newFixture(false)
	f.repo.runs.stored["run-1"] = entity.PipelineRun{ID: "run-1", UserID: "user-1"}

	run, err := f.svc.GetRun(context.Background(), "user-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)

	_, err = f.svc.GetRun(context.Background(), "user-2", "run-1")
	assert.ErrorIs(t, err, voice.ErrRunNotOwned)

	_, err = f.svc.GetRun(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, voice.ErrRunNotFound)
}

func TestGetRunHistoryPagination(t *testing.T) {
	f := newFixture(false)
	for _, id := range []string{"a", "b", "c"} {
		f.repo.runs.stored[id] = entity.PipelineRun{ID: id, UserID: "user-1"}
	}

	res, err := f.svc.GetRunHistory(context.Background(), "user-1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, voice.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, res.Pagination)
	assert.Len(t, res.Runs, 2)

	res, err = f.svc.GetRunHistory(context.Background(), "user-1", 2, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Pagination.Limit)
	assert.Empty(t, res.Runs)
}

func TestPruneRunHistoryUsesRetention(t *testing.T) {
	f := newFixture(false)
	f.repo.runs.deleted = 4

	deleted, err := f.svc.PruneRunHistory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), deleted)
	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), f.repo.runs.cutoff)
	assert.True(t, f.repo.committed)
}

func TestClassifyText(t *testing.T) {
	f := newFixture(false)
	f.pipeline.prediction = &intent.Prediction{TopIntent: intent.MedicineRefill}

	res, err := f.svc.ClassifyText(context.Background(), voice.ClassifyRequest{Text: "refill my prescription"})
	require.NoError(t, err)
	assert.Equal(t, voice.DestinationResponse{Name: "CheckoutPage", Path: "/checkout", Intent: intent.MedicineRefill}, res.Destination)

	f.pipeline.classifyErr = &pipeline.ClassificationError{Err: errors.New("timeout")}
	_, err = f.svc.ClassifyText(context.Background(), voice.ClassifyRequest{Text: "x"})
	assert.Error(t, err)
}

func TestGetDestinations(t *testing.T) {
	f := newFixture(false)

	assert.Equal(t, []voice.DestinationResponse{
		{Name: "HomePage", Path: "/"},
		{Name: "BookingPage", Path: "/booking", Intent: intent.AppointmentBooking},
		{Name: "CheckoutPage", Path: "/checkout", Intent: intent.MedicineRefill},
	}, f.svc.GetDestinations(context.Background()))
}

func TestNavigateHome(t *testing.T) {
	f := newFixture(false)

	res, err := f.svc.NavigateHome(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, &voice.NavigateResponse{Path: "/", Delivered: true}, res)

	f.pipeline.navigateErr = navigation.ErrNoSubscribers
	_, err = f.svc.NavigateHome(context.Background(), "user-1")
	assert.ErrorIs(t, err, voice.ErrNoActiveConnection)

	f.pipeline.navigateErr = errors.New("write: broken pipe")
	_, err = f.svc.NavigateHome(context.Background(), "user-1")
	assert.ErrorIs(t, err, voice.ErrNavigationFailed)
}

func TestGetRecordingState(t *testing.T) {
	f := newFixture(false)
	f.pipeline.recording = true

	res, err := f.svc.GetRecordingState(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Recording)
}
