package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/speech"
)

type recognizeCall struct {
	Translate bool
	Source    string
	Target    string
	Audio     string
}

type fakeRecognizer struct {
	mu     sync.Mutex
	calls  []recognizeCall
	result *speech.Result
	err    error
	// during runs inside the call, before the result is returned.
	during func()
}

func (f *fakeRecognizer) RecognizeOnce(_ context.Context, audio io.Reader, language string) (*speech.Result, error) {
	return f.record(recognizeCall{Source: language}, audio)
}

func (f *fakeRecognizer) RecognizeAndTranslateOnce(_ context.Context, audio io.Reader, source, target string) (*speech.Result, error) {
	return f.record(recognizeCall{Translate: true, Source: source, Target: target}, audio)
}

func (f *fakeRecognizer) record(call recognizeCall, audio io.Reader) (*speech.Result, error) {
	data, _ := io.ReadAll(audio)
	call.Audio = string(data)

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

func (f *fakeRecognizer) Calls() []recognizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recognizeCall(nil), f.calls...)
}

type fakeClassifier struct {
	mu         sync.Mutex
	texts      []string
	prediction *intent.Prediction
	err        error
}

func (f *fakeClassifier) Analyze(_ context.Context, text string) (*intent.Prediction, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

type navigationCall struct {
	SessionID string
	Path      string
}

type fakeNavigator struct {
	mu    sync.Mutex
	paths []navigationCall
	err   error
}

func (f *fakeNavigator) NavigateTo(_ context.Context, sessionID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, navigationCall{SessionID: sessionID, Path: path})
	return f.err
}

type fakeInput struct {
	mu      sync.Mutex
	data    string
	openErr error
	opened  int
	closed  int
}

func (f *fakeInput) Open(context.Context) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return &trackedReader{Reader: strings.NewReader(f.data), input: f}, nil
}

type trackedReader struct {
	io.Reader
	input *fakeInput
}

func (t *trackedReader) Close() error {
	t.input.mu.Lock()
	defer t.input.mu.Unlock()
	t.input.closed++
	return nil
}

var errDevice = errors.New("no default input device")
